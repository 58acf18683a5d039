package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
)

// MetricsRepository persists per-request enrichment metrics. Insert-only.
type MetricsRepository interface {
	Insert(ctx context.Context, m *entity.EnrichmentMetric) error
}

// PGXMetricsRepository implements MetricsRepository using pgx.
type PGXMetricsRepository struct {
	pool pgxPool
}

// NewPGXMetricsRepository wires a pgx backed metrics repository.
func NewPGXMetricsRepository(pool *pgxpool.Pool) *PGXMetricsRepository {
	return &PGXMetricsRepository{pool: pool}
}

// Insert writes one metric row.
func (r *PGXMetricsRepository) Insert(ctx context.Context, m *entity.EnrichmentMetric) error {
	if m == nil {
		return fmt.Errorf("metric payload is nil")
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO enrichment_metrics (
            request_id,
            workspace_id,
            user_id,
            domain,
            provider,
            success,
            cached,
            degraded,
            duration_ms,
            retries,
            confidence,
            fields,
            error_code
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `,
		m.RequestID,
		m.WorkspaceID,
		m.UserID,
		m.Domain,
		m.Provider,
		m.Success,
		m.Cached,
		m.Degraded,
		m.DurationMs,
		m.Retries,
		m.Confidence,
		m.Fields,
		m.ErrorCode,
	)
	if err != nil {
		return fmt.Errorf("insert enrichment metric: %w", err)
	}

	return nil
}
