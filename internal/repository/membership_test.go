package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func TestPGXMembershipRepository_Find(t *testing.T) {
	workspaceID := uuid.MustParse("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	userID := uuid.MustParse("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")

	repo := &PGXMembershipRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = workspaceID
				*dest[1].(*uuid.UUID) = userID
				*dest[2].(*string) = "member"
				*dest[3].(*time.Time) = time.Now()
				return nil
			}}
		},
	}}

	m, err := repo.Find(context.Background(), workspaceID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Role != "member" || m.WorkspaceID != workspaceID {
		t.Fatalf("unexpected membership: %+v", m)
	}

	repo.pool = &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}
	if _, err := repo.Find(context.Background(), workspaceID, userID); !errors.Is(err, ErrMembershipNotFound) {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
}

func TestPGXMembershipRepository_IsPlatformAdmin(t *testing.T) {
	repo := &PGXMembershipRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*bool) = true
				return nil
			}}
		},
	}}

	admin, err := repo.IsPlatformAdmin(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admin {
		t.Fatalf("expected admin flag set")
	}

	// A user without a profile row is not an admin, and not an error.
	repo.pool = &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}
	admin, err = repo.IsPlatformAdmin(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if admin {
		t.Fatalf("expected missing profile treated as non-admin")
	}
}
