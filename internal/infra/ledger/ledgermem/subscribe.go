package ledgermem

import (
	"context"
	"sync"

	"certichain/internal/domain"
	"certichain/internal/usecase"
)

type subscription struct {
	events chan domain.LedgerEvent
	errs   chan error
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.LedgerEvent { return s.events }
func (s *subscription) Err() <-chan error                 { return s.errs }

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	if err := c.ledger.enter(ctx, "blockNumber"); err != nil {
		return 0, err
	}
	return c.ledger.BlockNumber(), nil
}

// Subscribe replays stored events from fromBlock onwards and then follows
// new ones. The events channel is closed once the subscription ends.
func (c *Client) Subscribe(ctx context.Context, fromBlock uint64) (usecase.Subscription, error) {
	if err := c.ledger.enter(ctx, "subscribe"); err != nil {
		return nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		events: make(chan domain.LedgerEvent, 16),
		errs:   make(chan error, 1),
		cancel: cancel,
	}
	go c.ledger.feed(subCtx, sub, fromBlock)
	return sub, nil
}

func (l *Ledger) feed(ctx context.Context, sub *subscription, fromBlock uint64) {
	defer close(sub.events)
	cursor := 0
	for {
		l.mu.RLock()
		pending := l.events[cursor:]
		changed := l.changed
		l.mu.RUnlock()

		for _, ev := range pending {
			cursor++
			if ev.BlockNumber < fromBlock {
				continue
			}
			select {
			case sub.events <- ev:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}
