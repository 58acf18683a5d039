package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
	"github.com/iixiiartist/founderhq-enrichment/internal/repository"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/provider"
)

// stubMemberships backs AccessService tests.
type stubMemberships struct {
	membership *entity.Membership
	findErr    error
	admin      bool
	adminErr   error
}

func (s *stubMemberships) Find(ctx context.Context, workspaceID, userID uuid.UUID) (*entity.Membership, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.membership, nil
}

func (s *stubMemberships) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.admin, s.adminErr
}

// memCacheRepo is an in-memory CacheRepository used by the cache and
// pipeline tests. Safe for the fire-and-forget paths.
type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*entity.CacheEntry
	bumps   int
	getErr  error
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: make(map[string]*entity.CacheEntry)}
}

func cacheKey(workspaceID uuid.UUID, domain string) string {
	return fmt.Sprintf("%s|%s", workspaceID, domain)
}

func (m *memCacheRepo) Get(ctx context.Context, workspaceID uuid.UUID, domain string) (*entity.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[cacheKey(workspaceID, domain)]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	copied := *entry
	return &copied, nil
}

func (m *memCacheRepo) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *entry
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.LastAccessed = time.Now()
	stored.CreatedAt = time.Now()
	m.entries[cacheKey(entry.WorkspaceID, entry.Domain)] = &stored
	return nil
}

func (m *memCacheRepo) BumpHit(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bumps++
	for _, entry := range m.entries {
		if entry.ID == id {
			entry.HitCount++
			entry.LastAccessed = time.Now()
		}
	}
	return nil
}

func (m *memCacheRepo) DeleteByDomain(ctx context.Context, workspaceID uuid.UUID, domain string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cacheKey(workspaceID, domain)
	if _, ok := m.entries[key]; !ok {
		return 0, nil
	}
	delete(m.entries, key)
	return 1, nil
}

func (m *memCacheRepo) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, entry := range m.entries {
		if entry.WorkspaceID == workspaceID {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memCacheRepo) Count(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, entry := range m.entries {
		if entry.WorkspaceID == workspaceID {
			count++
		}
	}
	return count, nil
}

func (m *memCacheRepo) TrimOldest(ctx context.Context, workspaceID uuid.UUID, n int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type keyed struct {
		key   string
		entry *entity.CacheEntry
	}
	var candidates []keyed
	for key, entry := range m.entries {
		if entry.WorkspaceID == workspaceID {
			candidates = append(candidates, keyed{key, entry})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].entry.LastAccessed.Before(candidates[j].entry.LastAccessed)
	})
	var removed int64
	for i := 0; i < n && i < len(candidates); i++ {
		delete(m.entries, candidates[i].key)
		removed++
	}
	return removed, nil
}

func (m *memCacheRepo) bumpCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bumps
}

func (m *memCacheRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// stubAdapter is a provider mock with a call counter.
type stubAdapter struct {
	name   string
	fields map[string]any
	err    error
	calls  int32
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Call(ctx context.Context, q provider.Query) (*provider.RawResult, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.err != nil {
		return nil, a.err
	}
	return &provider.RawResult{Fields: a.fields, StatusCode: 200}, nil
}

func (a *stubAdapter) callCount() int32 {
	return atomic.LoadInt32(&a.calls)
}

// stubBalanceStore records deductions for the pipeline tests.
type stubBalanceStore struct {
	mu      sync.Mutex
	balance int
	deducts int
}

func (s *stubBalanceStore) Balance(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *stubBalanceStore) Deduct(ctx context.Context, workspaceID, userID uuid.UUID, cents int, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deducts++
	s.balance -= cents
	return nil
}

func (s *stubBalanceStore) deductCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deducts
}

// stubMetrics records emitted metric rows.
type stubMetrics struct {
	mu      sync.Mutex
	records []*entity.EnrichmentMetric
}

func (s *stubMetrics) Insert(ctx context.Context, m *entity.EnrichmentMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, m)
	return nil
}

func (s *stubMetrics) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
