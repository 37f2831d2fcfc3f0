package usecase_test

import (
	"context"
	"testing"
	"time"

	"certichain/internal/domain"
	"certichain/internal/infra/historymem"
	"certichain/internal/usecase"

	"github.com/ethereum/go-ethereum/common"
)

func TestHistoryIndexerSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.issue(t, janeDoe)
	if _, err := f.ledger.Client(institutionA).RevokeCertificate(ctx, id, "issued in error"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	store := historymem.New()
	indexer := usecase.NewHistoryIndexer(f.ledger.Client(common.Address{}), store, 0)
	n, err := indexer.Sync(ctx, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	// two registrations, one issue, one revoke
	if n != 4 {
		t.Fatalf("expected 4 stored events, got %d", n)
	}

	// A second sync resumes at the last block and stores nothing new.
	n, err = indexer.Sync(ctx, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no new events, got %d", n)
	}

	query := &usecase.HistoryQuery{Store: store}
	events, err := query.List(ctx, usecase.HistoryFilter{RecordID: &id})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for record, got %d", len(events))
	}
	if events[0].Kind != domain.EventCertificateRevoked || events[1].Kind != domain.EventCertificateIssued {
		t.Fatalf("expected newest first, got %s then %s", events[0].Kind, events[1].Kind)
	}
	if events[0].Reason != "issued in error" {
		t.Fatalf("unexpected revoke reason %q", events[0].Reason)
	}

	registered, err := query.List(ctx, usecase.HistoryFilter{Kind: domain.EventInstitutionRegistered, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(registered) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(registered))
	}
	if _, err := query.List(ctx, usecase.HistoryFilter{Kind: "bogus"}); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestHistoryIndexerRunFollowsNewEvents(t *testing.T) {
	f := newFixture(t)
	store := historymem.New()
	indexer := usecase.NewHistoryIndexer(f.ledger.Client(common.Address{}), store, 0)
	indexer.RetryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- indexer.Run(ctx) }()

	id := f.issue(t, janeDoe)
	deadline := time.Now().Add(2 * time.Second)
	for {
		events, _ := store.List(context.Background(), usecase.HistoryFilter{RecordID: &id})
		if len(events) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("indexer did not store the issued event")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
