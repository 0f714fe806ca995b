package credits

import (
	"context"
	"database/sql"
)

// Store persists credit balances and the ledger.
//
// DebitInTx runs inside a caller-owned transaction so that a debit and
// the record it pays for commit or roll back together. Implementations
// that do not use SQL accept a nil tx.
type Store interface {
	Balance(ctx context.Context, userID string) (*Balance, error)
	Grant(ctx context.Context, userID string, amount int, reason string) (*Balance, error)
	Refund(ctx context.Context, userID string, amount int, reason string) (*Balance, error)
	DebitInTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason string) error
}
