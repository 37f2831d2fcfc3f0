package db

import (
	"context"
	"errors"
	"testing"

	"certichain/internal/config"
	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewStoreWithoutDSN(t *testing.T) {
	store, err := NewStore(config.Config{}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Enabled() {
		t.Fatal("expected store without DSN to be disabled")
	}
}

func TestRepositoriesRequireDB(t *testing.T) {
	ctx := context.Background()
	if _, err := NewHistoryRepository(nil).Append(ctx, domain.LedgerEvent{TxHash: "0x1"}); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
	if err := NewIssuanceRepository(nil).Append(ctx, usecase.IssuanceEntry{Status: "finalized"}); !errors.Is(err, errDBUnavailable) {
		t.Fatalf("expected db unavailable, got %v", err)
	}
}

func TestLedgerEventModelMapping(t *testing.T) {
	event := domain.LedgerEvent{
		Kind:        domain.EventCertificateIssued,
		RecordID:    3,
		Issuer:      common.HexToAddress("0xb1"),
		Subject:     common.HexToAddress("0xc1"),
		Commitment:  commitment.Fingerprint("x"),
		BlockNumber: 5,
		TxHash:      "0xfeed",
		LogIndex:    2,
	}
	model := ledgerEventModelFromDomain(event)
	if model.RecordID == nil || *model.RecordID != 3 || model.Institution != nil || model.Reason != nil {
		t.Fatalf("unexpected model %+v", model)
	}
	back, err := ledgerEventFromModel(model)
	if err != nil {
		t.Fatalf("from model: %v", err)
	}
	if back.Commitment != event.Commitment || back.Issuer != event.Issuer || back.RecordID != 3 {
		t.Fatalf("unexpected round trip %+v", back)
	}

	registered := ledgerEventModelFromDomain(domain.LedgerEvent{
		Kind:            domain.EventInstitutionRegistered,
		Institution:     common.HexToAddress("0xb2"),
		InstitutionName: "Institute B",
		TxHash:          "0xbeef",
	})
	if registered.RecordID != nil || registered.Commitment != nil {
		t.Fatalf("expected registry event without record fields, got %+v", registered)
	}
}
