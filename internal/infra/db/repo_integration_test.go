//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestHistoryRepository_AppendIsIdempotent(t *testing.T) {
	gdb := setupTestDB(t)
	resetDB(t, gdb)
	repo := NewHistoryRepository(gdb)
	ctx := context.Background()

	if _, ok, err := repo.LastBlock(ctx); err != nil || ok {
		t.Fatalf("expected empty history, got ok=%v err=%v", ok, err)
	}

	issued := domain.LedgerEvent{
		Kind:        domain.EventCertificateIssued,
		RecordID:    1,
		Issuer:      common.HexToAddress("0xb1"),
		Subject:     common.HexToAddress("0xc1"),
		Commitment:  commitment.Fingerprint("record-1"),
		BlockNumber: 10,
		TxHash:      "0xaaa",
		LogIndex:    1,
		ObservedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	stored, err := repo.Append(ctx, issued)
	if err != nil || !stored {
		t.Fatalf("expected first append to store, got %v %v", stored, err)
	}
	stored, err = repo.Append(ctx, issued)
	if err != nil || stored {
		t.Fatalf("expected replayed append to be ignored, got %v %v", stored, err)
	}

	revoked := domain.LedgerEvent{
		Kind:        domain.EventCertificateRevoked,
		RecordID:    1,
		Reason:      "fraud",
		BlockNumber: 12,
		TxHash:      "0xbbb",
		ObservedAt:  time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	if _, err := repo.Append(ctx, revoked); err != nil {
		t.Fatalf("append revoked: %v", err)
	}

	last, ok, err := repo.LastBlock(ctx)
	if err != nil || !ok || last != 12 {
		t.Fatalf("expected last block 12, got %d %v %v", last, ok, err)
	}

	id := uint64(1)
	events, err := repo.List(ctx, usecase.HistoryFilter{RecordID: &id, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Kind != domain.EventCertificateRevoked || events[1].Commitment != issued.Commitment {
		t.Fatalf("unexpected history %+v", events)
	}
	if events[1].Issuer != issued.Issuer {
		t.Fatalf("expected issuer %s, got %s", issued.Issuer.Hex(), events[1].Issuer.Hex())
	}
}

func TestIssuanceRepository_Append(t *testing.T) {
	gdb := setupTestDB(t)
	resetDB(t, gdb)
	repo := NewIssuanceRepository(gdb)
	ctx := context.Background()

	commit := commitment.Fingerprint("journal")
	if err := repo.Append(ctx, usecase.IssuanceEntry{
		Issuer:     common.HexToAddress("0xb1"),
		Subject:    common.HexToAddress("0xc1"),
		Commitment: commit,
		Status:     usecase.IssuanceStatusRejected,
		Error:      "duplicate",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	id := uint64(4)
	if err := repo.Append(ctx, usecase.IssuanceEntry{
		Issuer:     common.HexToAddress("0xb1"),
		Subject:    common.HexToAddress("0xc1"),
		Commitment: commit,
		Status:     usecase.IssuanceStatusFinalized,
		RecordID:   &id,
		TxHash:     "0xabc",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := repo.ListByCommitment(ctx, commit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[1].RecordID == nil || *entries[1].RecordID != 4 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].ID == "" || entries[0].Error != "duplicate" {
		t.Fatalf("expected generated id and error text, got %+v", entries[0])
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func resetDB(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	if err := gdb.Exec(`TRUNCATE ledger_events, issuances RESTART IDENTITY`).Error; err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
