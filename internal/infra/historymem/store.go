package historymem

import (
	"context"
	"sync"

	"certichain/internal/domain"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"
)

// Store keeps ledger events and issuance journal entries in memory. It is
// the backing store when no database is configured.
type Store struct {
	mu       sync.RWMutex
	events   []domain.LedgerEvent
	seen     map[string]struct{}
	journal  []usecase.IssuanceEntry
	maxBlock uint64
}

func New() *Store {
	return &Store{seen: make(map[string]struct{})}
}

func (s *Store) Append(ctx context.Context, event domain.LedgerEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := event.Key()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.events = append(s.events, event)
	if event.BlockNumber > s.maxBlock {
		s.maxBlock = event.BlockNumber
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, filter usecase.HistoryFilter) ([]domain.LedgerEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LedgerEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if filter.Kind != "" && ev.Kind != filter.Kind {
			continue
		}
		if filter.RecordID != nil && (!ev.Kind.Certificate() || ev.RecordID != *filter.RecordID) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) LastBlock(ctx context.Context) (uint64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBlock, len(s.events) > 0, nil
}

// Journal is the issuance-journal view of a Store.
type Journal struct {
	store *Store
}

func (s *Store) Journal() *Journal {
	return &Journal{store: s}
}

func (j *Journal) Append(ctx context.Context, entry usecase.IssuanceEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.store.mu.Lock()
	defer j.store.mu.Unlock()
	j.store.journal = append(j.store.journal, entry)
	return nil
}

// Entries returns journal entries, oldest first.
func (j *Journal) Entries() []usecase.IssuanceEntry {
	j.store.mu.RLock()
	defer j.store.mu.RUnlock()
	out := make([]usecase.IssuanceEntry, len(j.store.journal))
	copy(out, j.store.journal)
	return out
}

func (j *Journal) ListByCommitment(ctx context.Context, commit commitment.Digest) ([]usecase.IssuanceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []usecase.IssuanceEntry
	for _, entry := range j.Entries() {
		if entry.Commitment == commit {
			out = append(out, entry)
		}
	}
	return out, nil
}

var (
	_ usecase.HistoryStore = (*Store)(nil)
	_ usecase.IssuanceLog  = (*Journal)(nil)
)
