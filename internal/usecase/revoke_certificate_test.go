package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"certichain/internal/domain"
	"certichain/internal/usecase"

	"github.com/ethereum/go-ethereum/common"
)

func TestRevokeCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.issue(t, janeDoe)
	revoke := usecase.NewRevokeCertificate(f.ledger.Client(institutionA), time.Second)

	if _, err := revoke.Execute(ctx, id, "  "); !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("expected reason required, got %v", err)
	}
	if _, err := revoke.Execute(ctx, 404, "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	other := usecase.NewRevokeCertificate(f.ledger.Client(institutionB), time.Second)
	if _, err := other.Execute(ctx, id, "not mine"); !errors.Is(err, domain.ErrNotIssuer) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected not issuer, got %v", err)
	}

	receipt, err := revoke.Execute(ctx, id, "issued in error")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if receipt.TxHash == "" {
		t.Fatal("expected tx hash")
	}
	if _, err := revoke.Execute(ctx, id, "again"); !errors.Is(err, domain.ErrAlreadyRevoked) {
		t.Fatalf("expected already revoked, got %v", err)
	}

	readOnly := usecase.NewRevokeCertificate(f.ledger.Client(common.Address{}), time.Second)
	id2 := f.issue(t, usecase.IssueRequest{Subject: holder.Hex(), Name: "John Roe", Email: "john@example.edu", Course: "MSc", EnrollmentDate: "2021-01-10"})
	if _, err := readOnly.Execute(ctx, id2, "x"); !errors.Is(err, domain.ErrReadOnly) {
		t.Fatalf("expected read-only, got %v", err)
	}
}

func TestInstitutionDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := usecase.NewInstitutionDirectory(f.ledger.Client(registryOwner), time.Second)

	owner, err := dir.Owner(ctx)
	if err != nil || owner != registryOwner {
		t.Fatalf("unexpected owner %s %v", owner.Hex(), err)
	}
	if _, err := dir.Remove(ctx, institutionB); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 institutions, got %d", len(list))
	}
	byAddr := map[common.Address]domain.Institution{}
	for _, inst := range list {
		byAddr[inst.Address] = inst
	}
	if !byAddr[institutionA].Authorized || byAddr[institutionA].Name != "University A" {
		t.Fatalf("unexpected institution A: %+v", byAddr[institutionA])
	}
	if byAddr[institutionB].Authorized {
		t.Fatal("expected institution B inactive")
	}

	if _, err := dir.Register(ctx, common.Address{}, "Zero"); !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("expected zero address rejection, got %v", err)
	}
	if _, err := dir.Register(ctx, institutionB, " "); !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("expected name required, got %v", err)
	}

	notOwner := usecase.NewInstitutionDirectory(f.ledger.Client(institutionA), time.Second)
	if _, err := notOwner.Register(ctx, institutionB, "University B"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := usecase.ParseAddress(" " + institutionA.Hex() + " ")
	if err != nil || addr != institutionA {
		t.Fatalf("unexpected parse result %s %v", addr.Hex(), err)
	}
	if _, err := usecase.ParseAddress("0x1234"); !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("expected input validation, got %v", err)
	}
}
