package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certichain/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares route windows across server replicas.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Now      func() time.Time
}

func NewRedisLimiter(ctx context.Context, cfg RedisConfig) (*RedisLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "certichain:ratelimit:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLimiter{client: client, prefix: cfg.Prefix, now: cfg.Now}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context, key domain.RateLimitKey, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return unlimited(key, limit), nil
	}
	if err := validKey(key); err != nil {
		return domain.RateLimitDecision{}, err
	}
	periodMillis := period.Milliseconds()
	if periodMillis <= 0 {
		periodMillis = 1000
	}
	result, err := allowScript.Run(ctx, r.client, []string{r.redisKey(key)}, periodMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("rate limit %s: %w", key.Route, err)
	}
	used, ttlMillis, err := parseCounter(result)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	decision := domain.RateLimitDecision{
		Key:     key,
		Allowed: used <= int64(limit),
		Limit:   limit,
		ResetAt: r.now(),
	}
	if ttlMillis > 0 {
		decision.ResetAt = decision.ResetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	if decision.Allowed {
		decision.Remaining = limit - int(used)
	}
	return decision, nil
}

// redisKey groups a client's routes under one hash slot.
func (r *RedisLimiter) redisKey(key domain.RateLimitKey) string {
	return r.prefix + string(key.Route) + ":{" + key.Client + "}"
}

func parseCounter(result any) (int64, int64, error) {
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return 0, 0, errors.New("unexpected redis rate limit response")
	}
	used, ok := values[0].(int64)
	if !ok {
		return 0, 0, errors.New("invalid redis counter response")
	}
	ttlMillis, _ := values[1].(int64)
	return used, ttlMillis, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

var _ domain.RateLimiter = (*RedisLimiter)(nil)
