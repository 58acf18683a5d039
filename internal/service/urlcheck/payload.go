package urlcheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxBodyBytes bounds the request body before any JSON parsing happens.
	MaxBodyBytes = 10 * 1024
	// MaxURLsPerRequest caps how many targets one enrichment call may name.
	MaxURLsPerRequest = 3
)

// ValidatePayload enforces the structural rules for an enrichment request body:
// urls is a non-empty string array of at most three entries, and workspaceId,
// when present, has UUID v4 shape.
func ValidatePayload(urls []string, workspaceID string) error {
	if len(urls) == 0 {
		return errors.New("urls must be a non-empty array")
	}
	if len(urls) > MaxURLsPerRequest {
		return fmt.Errorf("urls must contain at most %d entries", MaxURLsPerRequest)
	}
	for i, u := range urls {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("urls[%d] must be a non-empty string", i)
		}
	}
	if workspaceID != "" && !IsWorkspaceID(workspaceID) {
		return errors.New("workspaceId must be a UUID")
	}
	return nil
}

// IsWorkspaceID reports whether the value has UUID v4 shape.
func IsWorkspaceID(value string) bool {
	id, err := uuid.Parse(value)
	if err != nil {
		return false
	}
	return id.Version() == 4
}
