package ratelimit

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"certichain/internal/domain"

	"github.com/google/uuid"
)

func dataKey(client string) domain.RateLimitKey {
	return domain.RateLimitKey{Route: domain.RouteVerifyByData, Client: client}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryLimiterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(MemoryConfig{Now: clock.Now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, dataKey("1.2.3.4"), 3, time.Minute)
		if err != nil || !decision.Allowed {
			t.Fatalf("expected request %d allowed, got %+v %v", i, decision, err)
		}
		if decision.Remaining != 2-i {
			t.Fatalf("expected remaining %d, got %d", 2-i, decision.Remaining)
		}
	}
	decision, err := limiter.Allow(ctx, dataKey("1.2.3.4"), 3, time.Minute)
	if err != nil || decision.Allowed {
		t.Fatalf("expected fourth request denied, got %+v %v", decision, err)
	}
	if !decision.ResetAt.Equal(clock.now.Add(time.Minute)) {
		t.Fatalf("unexpected reset %s", decision.ResetAt)
	}

	other, err := limiter.Allow(ctx, dataKey("5.6.7.8"), 3, time.Minute)
	if err != nil || !other.Allowed {
		t.Fatalf("expected separate key allowed, got %+v %v", other, err)
	}

	clock.now = clock.now.Add(time.Minute)
	decision, err = limiter.Allow(ctx, dataKey("1.2.3.4"), 3, time.Minute)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected new window to allow, got %+v %v", decision, err)
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(MemoryConfig{Now: clock.Now, MaxKeys: 1})
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, dataKey("a"), 1, time.Second); err != nil {
		t.Fatalf("allow a: %v", err)
	}
	if _, err := limiter.Allow(ctx, dataKey("b"), 1, time.Second); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	clock.now = clock.now.Add(2 * time.Second)
	if _, err := limiter.Allow(ctx, dataKey("b"), 1, time.Second); err != nil {
		t.Fatalf("expected expired window to be swept, got %v", err)
	}
}

func TestLimiterDisabledLimit(t *testing.T) {
	decision, err := NewMemoryLimiter(MemoryConfig{}).Allow(context.Background(), domain.RateLimitKey{}, 0, time.Second)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected zero limit to allow, got %+v %v", decision, err)
	}
}

func TestMemoryLimiterSeparatesRoutes(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(MemoryConfig{Now: clock.Now})
	ctx := context.Background()

	byData := domain.RateLimitKey{Route: domain.RouteForPath(domain.PathByData), Client: "1.2.3.4"}
	byID := domain.RateLimitKey{Route: domain.RouteForPath(domain.PathByID), Client: "1.2.3.4"}
	if _, err := limiter.Allow(ctx, byData, 1, time.Minute); err != nil {
		t.Fatalf("allow data: %v", err)
	}
	denied, err := limiter.Allow(ctx, byData, 1, time.Minute)
	if err != nil || denied.Allowed || denied.Key != byData {
		t.Fatalf("expected data path exhausted, got %+v %v", denied, err)
	}
	decision, err := limiter.Allow(ctx, byID, 1, time.Minute)
	if err != nil || !decision.Allowed {
		t.Fatalf("expected id path to keep its own window, got %+v %v", decision, err)
	}

	routes := limiter.Routes()
	if routes[domain.RouteVerifyByData] != 1 || routes[domain.RouteVerifyByID] != 1 {
		t.Fatalf("unexpected route windows %v", routes)
	}
	clock.now = clock.now.Add(time.Minute)
	if routes := limiter.Routes(); len(routes) != 0 {
		t.Fatalf("expected expired windows to drop out, got %v", routes)
	}
}

func TestMemoryLimiterRejectsIncompleteKey(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryConfig{})
	_, err := limiter.Allow(context.Background(), domain.RateLimitKey{Route: domain.RouteVerifyByID}, 1, time.Second)
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestRateLimitKeyString(t *testing.T) {
	key := domain.RateLimitKey{Route: domain.RouteCommitments, Client: "10.0.0.1"}
	if got := key.String(); got != "endpoint:commitments:client:10.0.0.1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	limiter, err := NewRedisLimiter(context.Background(), RedisConfig{Addr: addr, Prefix: "certichain:test:"})
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	defer limiter.Close()

	key := dataKey(uuid.NewString())
	for i := 0; i < 2; i++ {
		decision, err := limiter.Allow(context.Background(), key, 2, time.Minute)
		if err != nil || !decision.Allowed {
			t.Fatalf("expected request %d allowed, got %+v %v", i, decision, err)
		}
	}
	decision, err := limiter.Allow(context.Background(), key, 2, time.Minute)
	if err != nil || decision.Allowed || decision.Remaining != 0 {
		t.Fatalf("expected third request denied, got %+v %v", decision, err)
	}
}
