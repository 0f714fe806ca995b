package analyses

import (
	"context"
	"database/sql"
	"time"
)

// Repo persists analysis records.
//
// CreateWithDebit inserts the analysis and runs the debit callback in
// the same transaction, so the credit charge and the record commit or
// roll back together. Non-SQL implementations invoke the callback with
// a nil tx.
type Repo interface {
	CreateWithDebit(ctx context.Context, a *Analysis, debit func(ctx context.Context, tx *sql.Tx) error) error
	GetByID(ctx context.Context, userID, id string) (*Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Analysis, error)
	MarkCompleted(ctx context.Context, id string, a *Analysis, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error
}
