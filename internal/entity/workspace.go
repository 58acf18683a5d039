package entity

import (
	"time"

	"github.com/google/uuid"
)

// Membership ties a user to a workspace with a role.
type Membership struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Principal is the authenticated caller resolved from a bearer token plus the
// workspace context the request runs in.
type Principal struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	WorkspaceID   uuid.UUID `json:"workspace_id"`
	Role          string    `json:"role"`
	PlatformAdmin bool      `json:"platform_admin"`
}
