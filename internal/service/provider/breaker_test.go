package provider

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	breakers := NewMemoryBreakers(WithBreakerClock(func() time.Time { return now }))

	for i := 0; i < 4; i++ {
		breakers.RecordFailure("compound")
		if !breakers.Allow("compound") {
			t.Fatalf("expected breaker closed after %d failures", i+1)
		}
	}

	breakers.RecordFailure("compound")
	if breakers.Allow("compound") {
		t.Fatalf("expected breaker open after 5 consecutive failures")
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	breakers := NewMemoryBreakers(WithBreakerClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		breakers.RecordFailure("compound")
	}
	if breakers.Allow("compound") {
		t.Fatalf("expected breaker open")
	}

	now = now.Add(29 * time.Second)
	if breakers.Allow("compound") {
		t.Fatalf("expected breaker still open before cool-down elapses")
	}

	now = now.Add(time.Second)
	if !breakers.Allow("compound") {
		t.Fatalf("expected probe allowed after 30s cool-down")
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	breakers := NewMemoryBreakers(WithBreakerClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		breakers.RecordFailure("search")
	}
	now = now.Add(31 * time.Second)

	breakers.RecordSuccess("search")
	if breakers.Failures("search") != 0 {
		t.Fatalf("expected failure count reset on success")
	}
	if !breakers.Allow("search") {
		t.Fatalf("expected breaker closed after successful probe")
	}
}

func TestBreakerFailedProbeRestartsCooldown(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	breakers := NewMemoryBreakers(WithBreakerClock(func() time.Time { return now }))

	for i := 0; i < 5; i++ {
		breakers.RecordFailure("compound")
	}
	now = now.Add(31 * time.Second)
	if !breakers.Allow("compound") {
		t.Fatalf("expected probe allowed")
	}

	// Probe fails: the breaker re-opens and the cool-down restarts.
	breakers.RecordFailure("compound")
	now = now.Add(10 * time.Second)
	if breakers.Allow("compound") {
		t.Fatalf("expected breaker open again after failed probe")
	}
	now = now.Add(20 * time.Second)
	if !breakers.Allow("compound") {
		t.Fatalf("expected next probe after restarted cool-down")
	}
}

func TestBreakersAreIndependentPerProvider(t *testing.T) {
	breakers := NewMemoryBreakers()
	for i := 0; i < 5; i++ {
		breakers.RecordFailure("compound")
	}
	if !breakers.Allow("search") {
		t.Fatalf("expected search breaker unaffected by compound failures")
	}
}
