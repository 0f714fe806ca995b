package analyses

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

type memoryRepo struct {
	mu       sync.Mutex
	analyses map[string]*Analysis
}

// NewMemoryRepo creates an in-memory analysis repository for tests and
// local runs. The debit callback receives a nil tx.
func NewMemoryRepo() Repo {
	return &memoryRepo{analyses: make(map[string]*Analysis)}
}

func (r *memoryRepo) CreateWithDebit(ctx context.Context, a *Analysis, debit func(ctx context.Context, tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := debit(ctx, nil); err != nil {
		return err
	}

	cp := *a
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.analyses[a.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, userID, id string) (*Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Analysis
	for _, a := range r.analyses {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) MarkCompleted(ctx context.Context, id string, a *Analysis, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.analyses[id]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != StatusProcessing && stored.Status != StatusQueued {
		return ErrTerminalConflict
	}

	stored.Status = StatusCompleted
	stored.Provider = a.Provider
	stored.Model = a.Model
	stored.QualityReport = a.QualityReport
	stored.Result = a.Result
	stored.OverallUrgency = a.OverallUrgency
	stored.CompletedAt = &completedAt
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) MarkFailed(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.analyses[id]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != StatusProcessing && stored.Status != StatusQueued {
		return ErrTerminalConflict
	}

	stored.Status = StatusFailed
	stored.ErrorCode = code
	stored.ErrorMessage = message
	stored.ErrorRetryable = retryable
	stored.CompletedAt = &completedAt
	stored.UpdatedAt = time.Now().UTC()
	return nil
}
