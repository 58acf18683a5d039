// Package limiter enforces per-workspace request-rate ceilings and the
// prepaid balance model. Infrastructure failures never block traffic: both
// checks fail open by explicit policy, visibly flagged for operators.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FailurePolicy names what happens when the backing store is unreachable.
type FailurePolicy string

// FailOpen allows the request on store failure. Availability is favoured over
// strict enforcement; the allow is flagged so store outages stay detectable.
const FailOpen FailurePolicy = "fail_open"

// Atomic increment-and-expire so parallel requests for one workspace never
// lose counts.
const rateScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`

// RateResult reports one rate-limit decision.
type RateResult struct {
	Allowed    bool
	Count      int
	Remaining  int
	Limit      int
	ResetAt    time.Time
	FailedOpen bool
}

// RateLimiter counts requests per workspace in fixed windows backed by redis.
// When redis is unreachable it degrades to a process-local token bucket and
// reports the decision as failed-open.
type RateLimiter struct {
	redis  redis.Cmdable
	limit  int
	window time.Duration
	policy FailurePolicy
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// RateOption configures optional limiter behaviour.
type RateOption func(*RateLimiter)

// WithRateClock overrides the time source, for tests.
func WithRateClock(now func() time.Time) RateOption {
	return func(l *RateLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewRateLimiter builds a workspace rate limiter.
func NewRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, logger *zap.Logger, opts ...RateOption) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &RateLimiter{
		redis:  rdb,
		limit:  limit,
		window: window,
		policy: FailOpen,
		logger: logger,
		now:    time.Now,
		local:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check atomically increments the workspace counter for the current window
// and reports whether the request is allowed.
func (l *RateLimiter) Check(ctx context.Context, workspaceID string) RateResult {
	windowSeconds := int64(l.window.Seconds())
	bucket := l.now().Unix() / windowSeconds
	key := fmt.Sprintf("rate:%s:%d", workspaceID, bucket)
	resetAt := time.Unix((bucket+1)*windowSeconds, 0)

	raw, err := l.redis.Eval(ctx, rateScript, []string{key}, windowSeconds*2).Result()
	if err != nil {
		return l.failOpen(workspaceID, resetAt, err)
	}

	count, ok := raw.(int64)
	if !ok {
		return l.failOpen(workspaceID, resetAt, fmt.Errorf("unexpected redis reply %T", raw))
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return RateResult{
		Allowed:   int(count) <= l.limit,
		Count:     int(count),
		Remaining: remaining,
		Limit:     l.limit,
		ResetAt:   resetAt,
	}
}

// failOpen applies the FailOpen policy using a best-effort process-local
// token bucket so a redis outage still leaves some protection in place.
func (l *RateLimiter) failOpen(workspaceID string, resetAt time.Time, cause error) RateResult {
	l.logger.Warn("rate limit store unavailable, failing open",
		zap.String("workspace_id", workspaceID),
		zap.String("policy", string(l.policy)),
		zap.Error(cause))

	l.mu.Lock()
	local, ok := l.local[workspaceID]
	if !ok {
		perRequest := l.window / time.Duration(l.limit)
		local = rate.NewLimiter(rate.Every(perRequest), l.limit)
		l.local[workspaceID] = local
	}
	l.mu.Unlock()

	return RateResult{
		Allowed:    local.Allow(),
		Remaining:  l.limit,
		Limit:      l.limit,
		ResetAt:    resetAt,
		FailedOpen: true,
	}
}
