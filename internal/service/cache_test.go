package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemCacheRepo()
	svc := NewCacheService(repo, 24*time.Hour, 1000, zap.NewNop())
	workspaceID := uuid.New()

	if _, ok := svc.Lookup(context.Background(), workspaceID, "stripe.com"); ok {
		t.Fatalf("expected miss before store")
	}

	err := svc.Store(context.Background(), workspaceID, "stripe.com", "compound", json.RawMessage(`{"description":"Payments"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, ok := svc.Lookup(context.Background(), workspaceID, "stripe.com")
	if !ok {
		t.Fatalf("expected hit after store")
	}
	if entry.Provider != "compound" {
		t.Fatalf("unexpected provider %q", entry.Provider)
	}

	if !waitFor(time.Second, func() bool { return repo.bumpCount() == 1 }) {
		t.Fatalf("expected async hit bump recorded")
	}
}

func TestCacheServiceIsTenantIsolated(t *testing.T) {
	repo := newMemCacheRepo()
	svc := NewCacheService(repo, 24*time.Hour, 1000, zap.NewNop())
	wsA := uuid.New()
	wsB := uuid.New()

	if err := svc.Store(context.Background(), wsA, "stripe.com", "compound", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := svc.Lookup(context.Background(), wsB, "stripe.com"); ok {
		t.Fatalf("expected another workspace's entry invisible")
	}
}

func TestCacheServiceExpiresLazilyOnRead(t *testing.T) {
	repo := newMemCacheRepo()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc := NewCacheService(repo, 24*time.Hour, 1000, zap.NewNop(),
		WithCacheClock(func() time.Time { return now }))
	workspaceID := uuid.New()

	if err := svc.Store(context.Background(), workspaceID, "stripe.com", "compound", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Still fresh one second before the TTL boundary.
	now = now.Add(24*time.Hour - time.Second)
	if _, ok := svc.Lookup(context.Background(), workspaceID, "stripe.com"); !ok {
		t.Fatalf("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := svc.Lookup(context.Background(), workspaceID, "stripe.com"); ok {
		t.Fatalf("expected expired entry reported as miss")
	}

	if !waitFor(time.Second, func() bool { return repo.size() == 0 }) {
		t.Fatalf("expected expired entry deleted in the background")
	}
}

func TestCacheServiceDegradesToMissOnRepoError(t *testing.T) {
	repo := newMemCacheRepo()
	repo.getErr = context.DeadlineExceeded
	svc := NewCacheService(repo, 24*time.Hour, 1000, zap.NewNop())

	if _, ok := svc.Lookup(context.Background(), uuid.New(), "stripe.com"); ok {
		t.Fatalf("expected repo failure treated as miss")
	}
}

func TestCacheServiceTrimsOverCapacity(t *testing.T) {
	repo := newMemCacheRepo()
	svc := NewCacheService(repo, 24*time.Hour, 10, zap.NewNop())
	workspaceID := uuid.New()

	for i := 0; i < 11; i++ {
		domain := string(rune('a'+i)) + ".com"
		if err := svc.Store(context.Background(), workspaceID, domain, "compound", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Cap 10 with 0.9 headroom trims down to 9.
	if !waitFor(time.Second, func() bool { return repo.size() <= 9 }) {
		t.Fatalf("expected trim below capacity, have %d entries", repo.size())
	}
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemCacheRepo()
	svc := NewCacheService(repo, 24*time.Hour, 1000, zap.NewNop())
	workspaceID := uuid.New()

	for _, domain := range []string{"stripe.com", "linear.app"} {
		if err := svc.Store(context.Background(), workspaceID, domain, "compound", json.RawMessage(`{}`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	removed, err := svc.Invalidate(context.Background(), workspaceID, "stripe.com")
	if err != nil || removed != 1 {
		t.Fatalf("expected single domain removed, got %d err=%v", removed, err)
	}

	removed, err = svc.Invalidate(context.Background(), workspaceID, "")
	if err != nil || removed != 1 {
		t.Fatalf("expected workspace cleared, got %d err=%v", removed, err)
	}
}
