package usecase

import (
	"context"
	"errors"
	"sync"

	"certichain/internal/domain"
	"certichain/pkg/commitment"
)

// VerificationSession serialises the queries of one interactive user. Starting
// a query cancels the previous one, and a result that arrives after a newer
// query started is discarded with domain.ErrSuperseded.
type VerificationSession struct {
	Resolver *VerifyCertificate

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	last   *domain.Verdict
}

func NewVerificationSession(resolver *VerifyCertificate) *VerificationSession {
	return &VerificationSession{Resolver: resolver}
}

func (s *VerificationSession) ByID(ctx context.Context, recordID uint64) (domain.Verdict, error) {
	return s.Begin(ctx).ByID(recordID)
}

func (s *VerificationSession) ByData(ctx context.Context, data commitment.Data) (domain.Verdict, error) {
	return s.Begin(ctx).ByData(data)
}

// Query is a registered session query. It is superseded by any Begin or
// Reset that happens after it, whether or not it has started running.
type Query struct {
	session *VerificationSession
	ctx     context.Context
	cancel  context.CancelFunc
	gen     uint64
}

// Begin registers a query and cancels the previous one. Callers that run
// queries on their own goroutines call Begin in submission order and run the
// returned Query asynchronously.
func (s *VerificationSession) Begin(ctx context.Context) *Query {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	return &Query{session: s, ctx: runCtx, cancel: cancel, gen: s.gen}
}

func (q *Query) ByID(recordID uint64) (domain.Verdict, error) {
	return q.run(func(ctx context.Context) (domain.Verdict, error) {
		return q.session.Resolver.ByID(ctx, recordID)
	})
}

func (q *Query) ByData(data commitment.Data) (domain.Verdict, error) {
	return q.run(func(ctx context.Context) (domain.Verdict, error) {
		return q.session.Resolver.ByData(ctx, data)
	})
}

// Last returns the most recent verdict this session delivered.
func (s *VerificationSession) Last() (domain.Verdict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.Verdict{}, false
	}
	return *s.last, true
}

// Reset abandons any in-flight query and forgets the last verdict.
func (s *VerificationSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.last = nil
}

func (q *Query) run(fn func(context.Context) (domain.Verdict, error)) (domain.Verdict, error) {
	defer q.cancel()
	s := q.session
	if s == nil || s.Resolver == nil {
		return domain.Verdict{}, errors.New("verification session has no resolver")
	}
	s.mu.Lock()
	stale := s.gen != q.gen
	s.mu.Unlock()
	if stale {
		return domain.Verdict{}, domain.ErrSuperseded
	}

	verdict, err := fn(q.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != q.gen {
		return domain.Verdict{}, domain.ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		return domain.Verdict{}, err
	}
	s.last = &verdict
	return verdict, nil
}
