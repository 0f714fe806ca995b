package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type pgStore struct {
	db *sql.DB
}

// NewPGStore creates a Postgres-backed credit store.
func NewPGStore(db *sql.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Balance(ctx context.Context, userID string) (*Balance, error) {
	var b Balance
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, balance, updated_at
		FROM credits
		WHERE user_id = $1`, userID).Scan(&b.UserID, &b.Balance, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Balance{UserID: userID, Balance: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query balance: %w", err)
	}
	return &b, nil
}

func (s *pgStore) Grant(ctx context.Context, userID string, amount int, reason string) (*Balance, error) {
	return s.adjust(ctx, userID, amount, reason)
}

func (s *pgStore) Refund(ctx context.Context, userID string, amount int, reason string) (*Balance, error) {
	return s.adjust(ctx, userID, amount, reason)
}

func (s *pgStore) adjust(ctx context.Context, userID string, amount int, reason string) (*Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	balance, err := lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := balance + amount
	if newBalance < 0 {
		return nil, ErrInsufficientCredits
	}

	if err := applyDelta(ctx, tx, userID, amount, newBalance, reason); err != nil {
		return nil, err
	}

	var out Balance
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, balance, updated_at FROM credits WHERE user_id = $1`, userID).
		Scan(&out.UserID, &out.Balance, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reread balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &out, nil
}

// DebitInTx decrements the balance inside the caller's transaction,
// holding a row lock so concurrent debits serialize.
func (s *pgStore) DebitInTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason string) error {
	if tx == nil {
		return fmt.Errorf("debit requires a transaction")
	}
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive")
	}

	balance, err := lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return err
	}

	newBalance := balance - amount
	if newBalance < 0 {
		return ErrInsufficientCredits
	}

	return applyDelta(ctx, tx, userID, -amount, newBalance, reason)
}

// lockAndEnsure locks the user's credit row, creating a zero-balance
// row first if none exists.
func lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credits (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return 0, fmt.Errorf("ensure credit row: %w", err)
	}

	var balance int
	err := tx.QueryRowContext(ctx, `
		SELECT balance FROM credits WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock credit row: %w", err)
	}
	return balance, nil
}

func applyDelta(ctx context.Context, tx *sql.Tx, userID string, delta, newBalance int, reason string) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE credits SET balance = $2, updated_at = now() WHERE user_id = $1`,
		userID, newBalance); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_events (user_id, delta, reason) VALUES ($1, $2, $3)`,
		userID, delta, reason); err != nil {
		return fmt.Errorf("record ledger event: %w", err)
	}
	return nil
}
