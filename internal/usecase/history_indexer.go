package usecase

import (
	"context"
	"errors"
	"time"

	"certichain/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// HistoryIndexer copies ledger events into a HistoryStore. It resumes from
// the last stored block after restarts and subscription failures; the store
// drops events it has already seen.
type HistoryIndexer struct {
	Source     EventSource
	Store      HistoryStore
	FromBlock  uint64
	RetryDelay time.Duration
	Observer   Observer
	Log        *logrus.Entry
}

func NewHistoryIndexer(source EventSource, store HistoryStore, fromBlock uint64) *HistoryIndexer {
	return &HistoryIndexer{Source: source, Store: store, FromBlock: fromBlock, RetryDelay: 5 * time.Second}
}

// Run blocks until ctx ends.
func (h *HistoryIndexer) Run(ctx context.Context) error {
	if h == nil || h.Source == nil || h.Store == nil {
		return errors.New("history indexer requires an event source and a store")
	}
	log := logOrDiscard(h.Log)
	for {
		start, err := h.resumeBlock(ctx)
		if err == nil {
			log.WithField("from_block", start).Info("history subscription starting")
			err = h.follow(ctx, start)
		}
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("history subscription interrupted")
		if !sleepCtx(ctx, h.retryDelay()) {
			return nil
		}
	}
}

// Sync consumes events until the source has nothing more to deliver for
// idle, then returns. Used by one-shot tooling and tests.
func (h *HistoryIndexer) Sync(ctx context.Context, idle time.Duration) (int, error) {
	if h == nil || h.Source == nil || h.Store == nil {
		return 0, errors.New("history indexer requires an event source and a store")
	}
	start, err := h.resumeBlock(ctx)
	if err != nil {
		return 0, err
	}
	sub, err := h.Source.Subscribe(ctx, start)
	if err != nil {
		return 0, err
	}
	defer sub.Unsubscribe()

	stored := 0
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return stored, ctx.Err()
		case err := <-sub.Err():
			return stored, err
		case <-timer.C:
			return stored, nil
		case ev, ok := <-sub.Events():
			if !ok {
				return stored, nil
			}
			added, err := h.store(ctx, ev)
			if err != nil {
				return stored, err
			}
			if added {
				stored++
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)
		}
	}
}

func (h *HistoryIndexer) follow(ctx context.Context, start uint64) error {
	sub, err := h.Source.Subscribe(ctx, start)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case ev, ok := <-sub.Events():
			if !ok {
				return errors.New("subscription closed")
			}
			if _, err := h.store(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (h *HistoryIndexer) store(ctx context.Context, ev domain.LedgerEvent) (bool, error) {
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = time.Now().UTC()
	}
	added, err := h.Store.Append(ctx, ev)
	if err != nil {
		return false, err
	}
	if added {
		observerOrNoop(h.Observer).ObserveHistoryEvent(ev.Kind)
		logOrDiscard(h.Log).WithFields(logrus.Fields{
			"kind":      ev.Kind,
			"block":     ev.BlockNumber,
			"tx_hash":   ev.TxHash,
			"record_id": ev.RecordID,
		}).Debug("ledger event stored")
	}
	return added, nil
}

// resumeBlock re-reads the last stored block since a block's events may
// have been only partly stored.
func (h *HistoryIndexer) resumeBlock(ctx context.Context) (uint64, error) {
	last, ok, err := h.Store.LastBlock(ctx)
	if err != nil {
		return 0, err
	}
	if !ok || last < h.FromBlock {
		return h.FromBlock, nil
	}
	return last, nil
}

func (h *HistoryIndexer) retryDelay() time.Duration {
	if h.RetryDelay <= 0 {
		return 5 * time.Second
	}
	return h.RetryDelay
}

// HistoryQuery reads indexed events, newest first.
type HistoryQuery struct {
	Store HistoryStore
}

func (q *HistoryQuery) List(ctx context.Context, filter HistoryFilter) ([]domain.LedgerEvent, error) {
	if q == nil || q.Store == nil {
		return nil, errors.New("history store is not configured")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultHistoryLimit
	case filter.Limit > MaxHistoryLimit:
		filter.Limit = MaxHistoryLimit
	}
	switch filter.Kind {
	case "", domain.EventCertificateIssued, domain.EventCertificateRevoked, domain.EventInstitutionRegistered, domain.EventInstitutionRemoved:
	default:
		return nil, domain.InputError("unknown event kind %q", filter.Kind)
	}
	return q.Store.List(ctx, filter)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
