// Package ledgermem is an in-process ledger with the same rules and revert
// reasons as the deployed registry and certificate contracts. Each write is
// mined into its own block immediately.
package ledgermem

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"certichain/internal/domain"
	"certichain/internal/infra/ledger"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/ethereum/go-ethereum/common"
)

type Ledger struct {
	mu    sync.RWMutex
	clock func() time.Time

	owner        common.Address
	institutions map[common.Address]*member
	order        []common.Address

	// records[0] is unused so that no record ever carries the lookup
	// sentinel as its id.
	records      []domain.Record
	holders      map[uint64]common.Address
	byCommitment map[commitment.Digest]uint64

	block   uint64
	events  []domain.LedgerEvent
	changed chan struct{}

	latency time.Duration
	faults  map[string]error
}

type member struct {
	name   string
	active bool
}

func New(owner common.Address) *Ledger {
	return NewWithClock(owner, time.Now)
}

func NewWithClock(owner common.Address, clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		clock:        clock,
		owner:        owner,
		institutions: make(map[common.Address]*member),
		records:      make([]domain.Record, 1),
		holders:      make(map[uint64]common.Address),
		byCommitment: make(map[commitment.Digest]uint64),
		changed:      make(chan struct{}),
		faults:       make(map[string]error),
	}
}

// Client returns a view of the ledger that signs writes as caller. A zero
// caller yields a read-only client.
func (l *Ledger) Client(caller common.Address) *Client {
	return &Client{ledger: l, caller: caller}
}

// SetLatency delays every call by d, honouring the caller's context.
func (l *Ledger) SetLatency(d time.Duration) {
	l.mu.Lock()
	l.latency = d
	l.mu.Unlock()
}

// FailWith makes every call to op return err until cleared with a nil err.
// Op names match the contract methods, e.g. "getCertificate".
func (l *Ledger) FailWith(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.faults, op)
		return
	}
	l.faults[op] = err
}

func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner
}

// HolderOf returns the address a record was minted to.
func (l *Ledger) HolderOf(id uint64) (common.Address, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	holder, ok := l.holders[id]
	return holder, ok
}

func (l *Ledger) BlockNumber() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.block
}

func (l *Ledger) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	latency := l.latency
	fault := l.faults[op]
	l.mu.RUnlock()
	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return fault
}

// mine appends events as one block. Callers hold l.mu.
func (l *Ledger) mine(events ...domain.LedgerEvent) domain.TxReceipt {
	l.block++
	txHash := txHashFor(l.block)
	now := l.clock().UTC()
	for i := range events {
		events[i].BlockNumber = l.block
		events[i].TxHash = txHash
		events[i].LogIndex = uint(i)
		events[i].ObservedAt = now
	}
	l.events = append(l.events, events...)
	close(l.changed)
	l.changed = make(chan struct{})
	return domain.TxReceipt{TxHash: txHash, BlockNumber: l.block}
}

func (l *Ledger) isAuthorized(addr common.Address) bool {
	inst, ok := l.institutions[addr]
	return ok && inst.active
}

func (l *Ledger) record(id uint64) (domain.Record, bool) {
	if id == 0 || id >= uint64(len(l.records)) {
		return domain.Record{}, false
	}
	return l.records[id], true
}

func txHashFor(block uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], block)
	return commitment.Fingerprint("ledgermem-tx:" + string(buf[:])).Hex()
}

func revert(op, reason string) error {
	return ledger.Reject(op, reason, nil)
}

var (
	_ usecase.CertificateLedger   = (*Client)(nil)
	_ usecase.InstitutionRegistry = (*Client)(nil)
	_ usecase.EventSource         = (*Client)(nil)
	_ usecase.Account             = (*Client)(nil)
)
