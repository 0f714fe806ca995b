package credits

import (
	"context"
	"database/sql"
	"fmt"

	"biolens-backend/internal/shared/telemetry"
)

// Service exposes credit operations.
type Service struct {
	store Store
}

// NewService creates a credit service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Balance returns the user's current balance.
func (s *Service) Balance(ctx context.Context, userID string) (*Balance, error) {
	return s.store.Balance(ctx, userID)
}

// GrantSignupCredits gives a new account its starting balance.
func (s *Service) GrantSignupCredits(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return nil
	}
	if _, err := s.store.Grant(ctx, userID, amount, ReasonSignupGrant); err != nil {
		return fmt.Errorf("grant signup credits: %w", err)
	}
	telemetry.Info("signup credits granted", map[string]any{
		"user_id": userID,
		"amount":  amount,
	})
	return nil
}

// Grant adds credits with a manual-grant ledger entry.
func (s *Service) Grant(ctx context.Context, userID string, amount int) (*Balance, error) {
	return s.store.Grant(ctx, userID, amount, ReasonManualGrant)
}

// HasCredit reports whether the user can afford one analysis. This is a
// cheap pre-check; the authoritative debit happens under a row lock.
func (s *Service) HasCredit(ctx context.Context, userID string) (bool, error) {
	b, err := s.store.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return b.Balance >= 1, nil
}

// DebitInTx charges one analysis inside the caller's transaction.
func (s *Service) DebitInTx(ctx context.Context, tx *sql.Tx, userID string, amount int) error {
	return s.store.DebitInTx(ctx, tx, userID, amount, ReasonAnalysisDebit)
}

// RefundAnalysis restores credits for a failed analysis.
func (s *Service) RefundAnalysis(ctx context.Context, userID string, amount int) error {
	if _, err := s.store.Refund(ctx, userID, amount, ReasonAnalysisRefund); err != nil {
		return fmt.Errorf("refund: %w", err)
	}
	return nil
}
