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

// ErrMembershipNotFound indicates the user has no row in the workspace.
var ErrMembershipNotFound = errors.New("workspace membership not found")

// MembershipRepository resolves workspace authorization data.
type MembershipRepository interface {
	Find(ctx context.Context, workspaceID, userID uuid.UUID) (*entity.Membership, error)
	IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PGXMembershipRepository implements MembershipRepository with pgx.
type PGXMembershipRepository struct {
	pool pgxPool
}

// NewPGXMembershipRepository wires a pgx backed membership repository.
func NewPGXMembershipRepository(pool *pgxpool.Pool) *PGXMembershipRepository {
	return &PGXMembershipRepository{pool: pool}
}

// Find fetches the membership row for a user in a workspace.
func (r *PGXMembershipRepository) Find(ctx context.Context, workspaceID, userID uuid.UUID) (*entity.Membership, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT workspace_id, user_id, role, created_at
        FROM workspace_members
        WHERE workspace_id = $1 AND user_id = $2
    `, workspaceID, userID)

	var m entity.Membership
	if err := row.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("query workspace membership: %w", err)
	}

	return &m, nil
}

// IsPlatformAdmin reports whether the user's profile carries the platform
// admin flag. A missing profile row is simply not an admin.
func (r *PGXMembershipRepository) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT is_platform_admin FROM profiles WHERE id = $1`, userID)

	var admin bool
	if err := row.Scan(&admin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query platform admin flag: %w", err)
	}

	return admin, nil
}
