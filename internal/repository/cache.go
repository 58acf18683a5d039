package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
)

// ErrCacheMiss indicates no stored enrichment for the (workspace, domain) key.
var ErrCacheMiss = errors.New("enrichment cache miss")

// CacheRepository describes persistence for stored enrichment results.
type CacheRepository interface {
	Get(ctx context.Context, workspaceID uuid.UUID, domain string) (*entity.CacheEntry, error)
	Upsert(ctx context.Context, entry *entity.CacheEntry) error
	BumpHit(ctx context.Context, id uuid.UUID) error
	DeleteByDomain(ctx context.Context, workspaceID uuid.UUID, domain string) (int64, error)
	DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	Count(ctx context.Context, workspaceID uuid.UUID) (int, error)
	// TrimOldest deletes up to n of the workspace's entries, expired rows
	// first and then the least recently accessed, and returns how many went.
	TrimOldest(ctx context.Context, workspaceID uuid.UUID, n int) (int64, error)
}

// PGXCacheRepository implements CacheRepository using pgx.
type PGXCacheRepository struct {
	pool pgxPool
}

// NewPGXCacheRepository wires a pgx backed cache repository.
func NewPGXCacheRepository(pool *pgxpool.Pool) *PGXCacheRepository {
	return &PGXCacheRepository{pool: pool}
}

// Get fetches the cache row for a workspace and normalized domain.
func (r *PGXCacheRepository) Get(ctx context.Context, workspaceID uuid.UUID, domain string) (*entity.CacheEntry, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, workspace_id, domain, provider, data, hit_count, last_accessed, created_at, expires_at
        FROM enrichment_cache
        WHERE workspace_id = $1 AND domain = $2
    `, workspaceID, domain)

	var e entity.CacheEntry
	err := row.Scan(&e.ID, &e.WorkspaceID, &e.Domain, &e.Provider, &e.Data,
		&e.HitCount, &e.LastAccessed, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}

	return &e, nil
}

// Upsert stores a fresh enrichment result, replacing any existing row for the
// same (workspace, domain) key and resetting its TTL and hit count.
func (r *PGXCacheRepository) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is nil")
	}

	query := `
        INSERT INTO enrichment_cache (
            workspace_id,
            domain,
            provider,
            data,
            hit_count,
            last_accessed,
            created_at,
            expires_at
        ) VALUES ($1, $2, $3, $4::jsonb, 0, NOW(), NOW(), $5)
        ON CONFLICT (workspace_id, domain) DO UPDATE SET
            provider = EXCLUDED.provider,
            data = EXCLUDED.data,
            hit_count = 0,
            last_accessed = NOW(),
            created_at = NOW(),
            expires_at = EXCLUDED.expires_at;
    `

	_, err := r.pool.Exec(ctx, query,
		entry.WorkspaceID,
		entry.Domain,
		entry.Provider,
		string(entry.Data),
		entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	return nil
}

// BumpHit increments the hit counter and touches last_accessed.
func (r *PGXCacheRepository) BumpHit(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE enrichment_cache
        SET hit_count = hit_count + 1, last_accessed = NOW()
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("bump cache hit: %w", err)
	}
	return nil
}

// DeleteByDomain removes the cache row for one domain in a workspace.
func (r *PGXCacheRepository) DeleteByDomain(ctx context.Context, workspaceID uuid.UUID, domain string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
        DELETE FROM enrichment_cache
        WHERE workspace_id = $1 AND domain = $2
    `, workspaceID, domain)
	if err != nil {
		return 0, fmt.Errorf("delete cache entry: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// DeleteWorkspace clears every cache row for a workspace.
func (r *PGXCacheRepository) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM enrichment_cache WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("clear workspace cache: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Count returns the number of cache rows held by one workspace.
func (r *PGXCacheRepository) Count(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM enrichment_cache WHERE workspace_id = $1
    `, workspaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// TrimOldest evicts n of the workspace's rows, preferring expired entries
// before live ones and ordering live ones by least recent access.
func (r *PGXCacheRepository) TrimOldest(ctx context.Context, workspaceID uuid.UUID, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	cmd, err := r.pool.Exec(ctx, `
        DELETE FROM enrichment_cache
        WHERE id IN (
            SELECT id FROM enrichment_cache
            WHERE workspace_id = $1
            ORDER BY (expires_at > NOW()) ASC, last_accessed ASC
            LIMIT $2
        )
    `, workspaceID, n)
	if err != nil {
		return 0, fmt.Errorf("trim cache: %w", err)
	}
	return cmd.RowsAffected(), nil
}
