package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CacheEntry is one stored enrichment result, keyed by (workspace, domain).
// Data holds the sanitized enrichment payload as JSON.
type CacheEntry struct {
	ID           uuid.UUID       `json:"id"`
	WorkspaceID  uuid.UUID       `json:"workspace_id"`
	Domain       string          `json:"domain"`
	Provider     string          `json:"provider"`
	Data         json.RawMessage `json:"data"`
	HitCount     int             `json:"hit_count"`
	LastAccessed time.Time       `json:"last_accessed"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Expired reports whether the entry has passed its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
