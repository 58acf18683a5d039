package entity

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentMetric is one per-request observability record, written
// fire-and-forget after the response is decided.
type EnrichmentMetric struct {
	ID          uuid.UUID `json:"id"`
	RequestID   string    `json:"request_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Domain      string    `json:"domain"`
	Provider    string    `json:"provider"`
	Success     bool      `json:"success"`
	Cached      bool      `json:"cached"`
	Degraded    bool      `json:"degraded"`
	DurationMs  int64     `json:"duration_ms"`
	Retries     int       `json:"retries"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Fields      []string  `json:"fields,omitempty"`
	ErrorCode   *string   `json:"error_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
