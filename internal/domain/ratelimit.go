package domain

import (
	"context"
	"time"
)

// RateLimitRoute names a budgeted lookup surface. Lookups by id and by data
// never share a window.
type RateLimitRoute string

const (
	RouteVerifyByID   RateLimitRoute = "verify:id"
	RouteVerifyByData RateLimitRoute = "verify:data"
	RouteCommitments  RateLimitRoute = "commitments"
)

// RouteForPath maps a verification path to its rate limit route.
func RouteForPath(path VerificationPath) RateLimitRoute {
	if path == PathByData {
		return RouteVerifyByData
	}
	return RouteVerifyByID
}

type RateLimitKey struct {
	Route  RateLimitRoute
	Client string
}

func (k RateLimitKey) String() string {
	return "endpoint:" + string(k.Route) + ":client:" + k.Client
}

type RateLimitDecision struct {
	Key       RateLimitKey
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key RateLimitKey, limit int, window time.Duration) (RateLimitDecision, error)
}
