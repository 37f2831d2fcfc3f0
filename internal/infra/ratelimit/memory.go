// Package ratelimit provides fixed-window limiters for the verification
// endpoints, in process or shared through Redis. Windows are tracked per
// route and client, so a client exhausting the data path can still look
// certificates up by id.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"certichain/internal/domain"
)

var (
	ErrCapacity   = errors.New("rate limiter capacity exceeded")
	ErrInvalidKey = errors.New("rate limit key needs a route and a client")
)

type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[domain.RateLimitKey]*window
	maxKeys int
}

type window struct {
	used    int
	resetAt time.Time
}

type MemoryConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryConfig) *MemoryLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &MemoryLimiter{
		now:     cfg.Now,
		windows: make(map[domain.RateLimitKey]*window),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key domain.RateLimitKey, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return unlimited(key, limit), nil
	}
	if err := validKey(key); err != nil {
		return domain.RateLimitDecision{}, err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.windowFor(key, now, period)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	decision := domain.RateLimitDecision{Key: key, Limit: limit, ResetAt: w.resetAt}
	if w.used >= limit {
		return decision, nil
	}
	w.used++
	decision.Allowed = true
	decision.Remaining = limit - w.used
	return decision, nil
}

// Routes reports how many live windows each route holds.
func (m *MemoryLimiter) Routes() map[domain.RateLimitRoute]int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.RateLimitRoute]int)
	for key, w := range m.windows {
		if now.Before(w.resetAt) {
			out[key.Route]++
		}
	}
	return out
}

func (m *MemoryLimiter) windowFor(key domain.RateLimitKey, now time.Time, period time.Duration) (*window, error) {
	if w, ok := m.windows[key]; ok && now.Before(w.resetAt) {
		return w, nil
	}
	delete(m.windows, key)
	if len(m.windows) >= m.maxKeys {
		m.sweep(now)
	}
	if len(m.windows) >= m.maxKeys {
		return nil, ErrCapacity
	}
	w := &window{resetAt: now.Add(period)}
	m.windows[key] = w
	return w, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

func unlimited(key domain.RateLimitKey, limit int) domain.RateLimitDecision {
	return domain.RateLimitDecision{Key: key, Allowed: true, Limit: limit, Remaining: limit}
}

func validKey(key domain.RateLimitKey) error {
	if key.Route == "" || key.Client == "" {
		return ErrInvalidKey
	}
	return nil
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)
