package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"certichain/internal/config"
	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

func memoryConfig() config.Config {
	return config.Config{
		LedgerMode:           config.LedgerModeMemory,
		CommitmentScheme:     "packed",
		LedgerTimeoutSeconds: 5,
		AdminAPIKey:          "admin",
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMemoryAppIssuesAndVerifies(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), quietLogger())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if a.StoreMode != "memory" {
		t.Fatalf("expected memory store, got %q", a.StoreMode)
	}
	signer, err := a.Signer()
	if err != nil || signer != common.HexToAddress(DefaultMemoryOwner) {
		t.Fatalf("expected default owner as signer, got %s err=%v", signer.Hex(), err)
	}

	result, err := a.Issue.Execute(ctx, usecase.IssueRequest{
		Subject:        "0x00000000000000000000000000000000000000c1",
		Name:           "Ada Lovelace",
		Email:          "ada@example.org",
		Course:         "Analytical Engines",
		EnrollmentDate: "2020-09-01",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if result.RecordID != 1 || result.Policy == nil || !result.Policy.Result.Allow {
		t.Fatalf("unexpected issue result %+v", result)
	}

	verdict, err := a.Verify.ByData(ctx, commitment.Data{
		Name:           "Ada Lovelace",
		Email:          "ada@example.org",
		Course:         "Analytical Engines",
		EnrollmentDate: "2020-09-01",
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verdict.Status != domain.VerdictValid {
		t.Fatalf("expected valid verdict, got %+v", verdict)
	}

	entries, err := a.Issuances.ListByCommitment(ctx, result.Commitment.Value)
	if err != nil || len(entries) != 1 || entries[0].Status != usecase.IssuanceStatusFinalized {
		t.Fatalf("expected one finalized journal entry, got %+v err=%v", entries, err)
	}

	n, err := a.Indexer.Sync(ctx, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("sync history: %v", err)
	}
	// institution seed plus the issuance
	if n != 2 {
		t.Fatalf("expected 2 indexed events, got %d", n)
	}
}

func TestPolicyDeniesSelfIssuance(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), quietLogger())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	_, err = a.Issue.Execute(ctx, usecase.IssueRequest{
		Subject:        DefaultMemoryOwner,
		Name:           "Ada Lovelace",
		Email:          "ada@example.org",
		Course:         "Analytical Engines",
		EnrollmentDate: "2020-09-01",
	})
	if !errors.Is(err, domain.ErrInputValidation) {
		t.Fatalf("expected policy denial as input error, got %v", err)
	}
}

func TestSkipPolicy(t *testing.T) {
	a, err := NewWithOptions(context.Background(), memoryConfig(), quietLogger(), Options{SkipPolicy: true, SkipStore: true})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	if a.Issue.Policy != nil {
		t.Fatal("expected no issuance policy")
	}
}

func TestRejectsBadConfiguration(t *testing.T) {
	cfg := memoryConfig()
	cfg.MemoryLedgerOwner = "not-an-address"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected error for malformed owner")
	}

	cfg = memoryConfig()
	cfg.CommitmentScheme = "sha1"
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected error for unknown scheme")
	}

	cfg = memoryConfig()
	cfg.HistoryFromBlock = -1
	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatal("expected error for negative start block")
	}
}

func TestServerUsesMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.RateLimitRequests = 5
	cfg.RateLimitWindowSeconds = 60
	a, err := New(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	if _, err := a.Server(ctx); err != nil {
		t.Fatalf("server: %v", err)
	}
	if a.RateLimiter == nil {
		t.Fatal("expected a rate limiter")
	}
}
