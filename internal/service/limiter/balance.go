package limiter

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInsufficientBalance is returned by stores when a conditional deduction
// finds too few cents on the workspace.
var ErrInsufficientBalance = errors.New("insufficient balance")

// BalanceStore is the persistence surface the balance manager needs.
type BalanceStore interface {
	Balance(ctx context.Context, workspaceID uuid.UUID) (int, error)
	// Deduct atomically subtracts cents if the balance covers them and
	// records an audit row. Returns ErrInsufficientBalance otherwise.
	Deduct(ctx context.Context, workspaceID, userID uuid.UUID, cents int, description string) error
}

// BalanceResult reports one pre-flight balance check.
type BalanceResult struct {
	Sufficient   bool
	BalanceCents int
	CostCents    int
	FailedOpen   bool
}

// BalanceManager gates enrichment on prepaid workspace credit. Reads fail
// open like the rate limiter; the deduction itself stays strict because it
// runs as a conditional update in the store.
type BalanceManager struct {
	store  BalanceStore
	cost   int
	policy FailurePolicy
	logger *zap.Logger
}

// NewBalanceManager builds a balance manager charging cost cents per request.
func NewBalanceManager(store BalanceStore, cost int, logger *zap.Logger) *BalanceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceManager{store: store, cost: cost, policy: FailOpen, logger: logger}
}

// Check reads the workspace balance and reports whether it covers one
// request. A store failure allows the request and flags the decision.
func (m *BalanceManager) Check(ctx context.Context, workspaceID uuid.UUID) BalanceResult {
	balance, err := m.store.Balance(ctx, workspaceID)
	if err != nil {
		m.logger.Warn("balance store unavailable, failing open",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("policy", string(m.policy)),
			zap.Error(err))
		return BalanceResult{Sufficient: true, CostCents: m.cost, FailedOpen: true}
	}
	return BalanceResult{
		Sufficient:   balance >= m.cost,
		BalanceCents: balance,
		CostCents:    m.cost,
	}
}

// Deduct charges the per-request cost after a successful enrichment. Callers
// treat failures as non-fatal; the request already succeeded.
func (m *BalanceManager) Deduct(ctx context.Context, workspaceID, userID uuid.UUID, description string) error {
	if err := m.store.Deduct(ctx, workspaceID, userID, m.cost, description); err != nil {
		m.logger.Error("balance deduction failed",
			zap.String("workspace_id", workspaceID.String()),
			zap.Int("cost_cents", m.cost),
			zap.Error(err))
		return err
	}
	return nil
}

// CostCents exposes the configured per-request cost.
func (m *BalanceManager) CostCents() int { return m.cost }
