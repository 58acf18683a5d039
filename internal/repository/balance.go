package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iixiiartist/founderhq-enrichment/internal/service/limiter"
)

// PGXBalanceRepository implements limiter.BalanceStore using pgx. Balances
// are integer cents; the deduction is a conditional update so concurrent
// requests can never overdraw a workspace.
type PGXBalanceRepository struct {
	pool pgxPool
}

// NewPGXBalanceRepository wires a pgx backed balance store.
func NewPGXBalanceRepository(pool *pgxpool.Pool) *PGXBalanceRepository {
	return &PGXBalanceRepository{pool: pool}
}

var _ limiter.BalanceStore = (*PGXBalanceRepository)(nil)

// Balance reads the current workspace balance in cents. A workspace without
// a balance row has zero credit.
func (r *PGXBalanceRepository) Balance(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT balance_cents FROM workspace_balances WHERE workspace_id = $1
    `, workspaceID)

	var cents int
	if err := row.Scan(&cents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query workspace balance: %w", err)
	}

	return cents, nil
}

// Deduct subtracts cents from the workspace balance if it covers them, and
// records an audit row in the same transaction. Returns
// limiter.ErrInsufficientBalance when the conditional update matches no row.
func (r *PGXBalanceRepository) Deduct(ctx context.Context, workspaceID, userID uuid.UUID, cents int, description string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("start deduction tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var remaining int
	err = tx.QueryRow(ctx, `
        UPDATE workspace_balances
        SET balance_cents = balance_cents - $2, updated_at = NOW()
        WHERE workspace_id = $1 AND balance_cents >= $2
        RETURNING balance_cents
    `, workspaceID, cents).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return limiter.ErrInsufficientBalance
		}
		return fmt.Errorf("deduct balance: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO balance_transactions (workspace_id, user_id, amount_cents, balance_after_cents, description)
        VALUES ($1, $2, $3, $4, $5)
    `, workspaceID, userID, -cents, remaining, description)
	if err != nil {
		return fmt.Errorf("record balance transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deduction tx: %w", err)
	}

	return nil
}
