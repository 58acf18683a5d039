package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
	"github.com/iixiiartist/founderhq-enrichment/internal/observability"
	"github.com/iixiiartist/founderhq-enrichment/internal/repository"
)

// Capacity maintenance trims below the hard cap so back-to-back writes do
// not trim on every request.
const trimHeadroom = 0.9

// CacheService is the tenant-scoped enrichment cache. Entries expire lazily
// on read; maintenance work (hit counting, expired-row cleanup, capacity
// trimming) runs off the request path.
type CacheService struct {
	repo     repository.CacheRepository
	logger   *zap.Logger
	scrubber *observability.Scrubber
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// CacheOption configures optional cache behaviour.
type CacheOption func(*CacheService)

// WithCacheClock overrides the time source, for tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(s *CacheService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCacheScrubber applies PII scrubbing to cache keys that reach the logs.
func WithCacheScrubber(scrubber *observability.Scrubber) CacheOption {
	return func(s *CacheService) {
		if scrubber != nil {
			s.scrubber = scrubber
		}
	}
}

// NewCacheService constructs the cache with the given TTL and capacity cap.
func NewCacheService(repo repository.CacheRepository, ttl time.Duration, capacity int, logger *zap.Logger, opts ...CacheOption) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CacheService{
		repo:     repo,
		logger:   logger,
		scrubber: observability.NewScrubber(false),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the stored entry for (workspace, domain) if present and
// fresh. Expired entries count as misses and are deleted in the background.
// Repository failures degrade to a miss: the cache never fails a request.
func (s *CacheService) Lookup(ctx context.Context, workspaceID uuid.UUID, domain string) (*entity.CacheEntry, bool) {
	entry, err := s.repo.Get(ctx, workspaceID, domain)
	if err != nil {
		if err != repository.ErrCacheMiss {
			s.logger.Warn("cache lookup failed",
				zap.Any("domain", s.scrubber.ScrubField("domain", domain)),
				zap.Error(err))
		}
		return nil, false
	}

	if entry.Expired(s.now()) {
		observability.Go(s.logger, "cache.expire", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.repo.DeleteByDomain(ctx, workspaceID, domain); err != nil {
				s.logger.Warn("expired cache cleanup failed", zap.Error(err))
			}
		})
		return nil, false
	}

	observability.Go(s.logger, "cache.hit", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.BumpHit(ctx, entry.ID); err != nil {
			s.logger.Warn("cache hit bump failed", zap.Error(err))
		}
	})

	return entry, true
}

// Store writes through a fresh enrichment result and schedules capacity
// maintenance.
func (s *CacheService) Store(ctx context.Context, workspaceID uuid.UUID, domain, provider string, data json.RawMessage) error {
	entry := &entity.CacheEntry{
		WorkspaceID: workspaceID,
		Domain:      domain,
		Provider:    provider,
		Data:        data,
		ExpiresAt:   s.now().Add(s.ttl),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return err
	}

	observability.Go(s.logger, "cache.trim", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.maintain(ctx, workspaceID)
	})

	return nil
}

// Invalidate removes one domain's entry, or the whole workspace cache when
// domain is empty.
func (s *CacheService) Invalidate(ctx context.Context, workspaceID uuid.UUID, domain string) (int64, error) {
	if domain == "" {
		return s.repo.DeleteWorkspace(ctx, workspaceID)
	}
	return s.repo.DeleteByDomain(ctx, workspaceID, domain)
}

// maintain trims the workspace back under the capacity target once it
// crosses the cap. Expired rows go first.
func (s *CacheService) maintain(ctx context.Context, workspaceID uuid.UUID) {
	count, err := s.repo.Count(ctx, workspaceID)
	if err != nil {
		s.logger.Warn("cache count failed", zap.Error(err))
		return
	}
	if count <= s.capacity {
		return
	}

	target := int(float64(s.capacity) * trimHeadroom)
	removed, err := s.repo.TrimOldest(ctx, workspaceID, count-target)
	if err != nil {
		s.logger.Warn("cache trim failed", zap.Error(err))
		return
	}
	s.logger.Info("cache trimmed",
		zap.String("workspace_id", workspaceID.String()),
		zap.Int("count", count),
		zap.Int64("removed", removed))
}
