package dto

import "github.com/iixiiartist/founderhq-enrichment/internal/service/sanitize"

// EnrichRequest is the POST /api/enrich payload.
type EnrichRequest struct {
	URLs        []string `json:"urls"`
	WorkspaceID string   `json:"workspaceId,omitempty"`
	UseCache    *bool    `json:"useCache,omitempty"`
	Provider    string   `json:"provider,omitempty"`
}

// CacheEnabled defaults the useCache flag to true when absent.
func (r EnrichRequest) CacheEnabled() bool {
	if r.UseCache == nil {
		return true
	}
	return *r.UseCache
}

// EnrichResponse is the success envelope for POST /api/enrich.
type EnrichResponse struct {
	Success    bool                         `json:"success"`
	Enrichment sanitize.EnrichedCompanyData `json:"enrichment"`
	Provider   string                       `json:"provider"`
	DurationMs int64                        `json:"durationMs"`
	Cached     bool                         `json:"cached"`
	Degraded   bool                         `json:"degraded,omitempty"`
	RequestID  string                       `json:"requestId"`
}

// InvalidateCacheRequest is the DELETE /api/enrich/cache payload. An empty
// domain clears the whole workspace cache.
type InvalidateCacheRequest struct {
	Domain      string `json:"domain,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// InvalidateCacheResponse reports how many entries were removed.
type InvalidateCacheResponse struct {
	Success bool  `json:"success"`
	Removed int64 `json:"removed"`
}
