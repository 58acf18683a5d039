package provider

import (
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
)

// BreakerRegistry tracks consecutive-failure state per provider so callers can
// short-circuit requests to an unhealthy upstream. Injected rather than
// package-global so tests get a fresh instance per test.
type BreakerRegistry interface {
	// Allow reports whether a call to the named provider may proceed. While
	// the breaker is open it returns false until the cool-down has elapsed,
	// after which a single probe call is let through.
	Allow(name string) bool
	RecordFailure(name string)
	RecordSuccess(name string)
}

type breakerState struct {
	failures    int
	lastFailure time.Time
}

// MemoryBreakers is the process-lifetime in-memory BreakerRegistry. State is
// deliberately volatile: a cold start resets every breaker to closed, which
// degrades to "always allow" rather than blocking traffic.
type MemoryBreakers struct {
	mu        sync.Mutex
	states    map[string]*breakerState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// BreakerOption configures a MemoryBreakers instance.
type BreakerOption func(*MemoryBreakers)

// WithBreakerClock overrides the time source, for tests.
func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(b *MemoryBreakers) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBreakerThreshold overrides how many consecutive failures open the breaker.
func WithBreakerThreshold(n int) BreakerOption {
	return func(b *MemoryBreakers) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithBreakerCooldown overrides how long the breaker stays open.
func WithBreakerCooldown(d time.Duration) BreakerOption {
	return func(b *MemoryBreakers) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// NewMemoryBreakers builds a registry with the default 5-failure threshold and
// 30 second cool-down.
func NewMemoryBreakers(opts ...BreakerOption) *MemoryBreakers {
	b := &MemoryBreakers{
		states:    make(map[string]*breakerState),
		threshold: defaultFailureThreshold,
		cooldown:  defaultCooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow implements BreakerRegistry.
func (b *MemoryBreakers) Allow(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok || state.failures < b.threshold {
		return true
	}
	// Open: let a probe through once the cool-down since the last failure has
	// elapsed, regardless of how high the counter climbed.
	return b.now().Sub(state.lastFailure) >= b.cooldown
}

// RecordFailure implements BreakerRegistry.
func (b *MemoryBreakers) RecordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.states[name]
	if !ok {
		state = &breakerState{}
		b.states[name] = state
	}
	state.failures++
	state.lastFailure = b.now()
}

// RecordSuccess implements BreakerRegistry.
func (b *MemoryBreakers) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.states[name]; ok {
		state.failures = 0
	}
}

// Failures reports the consecutive failure count for a provider.
func (b *MemoryBreakers) Failures(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.states[name]; ok {
		return state.failures
	}
	return 0
}

var _ BreakerRegistry = (*MemoryBreakers)(nil)
