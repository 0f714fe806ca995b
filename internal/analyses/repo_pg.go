package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"biolens-backend/internal/imaging"
)

type pgRepo struct {
	db *sql.DB
}

// NewPGRepo creates a Postgres-backed analysis repository.
func NewPGRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

func (r *pgRepo) CreateWithDebit(ctx context.Context, a *Analysis, debit func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The debit runs first so the credit row lock is held for the
	// remainder of the transaction.
	if err := debit(ctx, tx); err != nil {
		return err
	}

	quality, err := marshalNullable(a.QualityReport)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (id, sample_id, user_id, status, sample_type, collection_date, location, notes, quality_report, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.SampleID, a.UserID, a.Status, a.SampleType, a.CollectionDate, a.Location, a.Notes, quality, a.StartedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const analysisColumns = `id, sample_id, user_id, status,
	COALESCE(sample_type, ''), COALESCE(collection_date, ''), COALESCE(location, ''), COALESCE(notes, ''),
	COALESCE(provider, ''), COALESCE(model, ''),
	quality_report, result, COALESCE(overall_urgency, ''),
	COALESCE(error_code, ''), COALESCE(error_message, ''), COALESCE(error_retryable, false),
	started_at, completed_at, created_at, updated_at`

func (r *pgRepo) GetByID(ctx context.Context, userID, id string) (*Analysis, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE id = $1 AND user_id = $2`, id, userID)
	a, err := scanAnalysis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *pgRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Analysis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []*Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkCompleted transitions a processing analysis to completed and
// writes the per-detection rows in the same transaction. A second
// terminal transition returns ErrTerminalConflict.
func (r *pgRepo) MarkCompleted(ctx context.Context, id string, a *Analysis, completedAt time.Time) error {
	result, err := marshalNullable(a.Result)
	if err != nil {
		return err
	}
	quality, err := marshalNullable(a.QualityReport)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE analyses
		SET status = $2, provider = $3, model = $4, quality_report = $5, result = $6,
		    overall_urgency = $7, completed_at = $8, updated_at = now()
		WHERE id = $1 AND status IN ($9, $10)`,
		id, StatusCompleted, a.Provider, a.Model, quality, result,
		a.OverallUrgency, completedAt, StatusProcessing, StatusQueued)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if err := requireTransition(res); err != nil {
		return err
	}

	if a.Result != nil {
		if err := insertDetections(ctx, tx, id, a.Result.Detections); err != nil {
			return err
		}
		if err := insertDetections(ctx, tx, id, a.Result.LowConfidenceDetections); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertDetections writes the relational projection of the detection
// list. The JSONB result column stays the read path; these rows exist
// for the user->analyses->detections cascade and for reporting queries.
func insertDetections(ctx context.Context, tx *sql.Tx, analysisID string, detections []Detection) error {
	for _, d := range detections {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal detection: %w", err)
		}
		var referenceID any
		if d.Reference != nil {
			referenceID = d.Reference.ID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO detections (id, analysis_id, common_name, scientific_name, life_stage,
			    confidence_raw, confidence_calibrated, confidence_label, is_reliable, urgency, reference_id, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			d.ID, analysisID, d.CommonName, d.ScientificName, d.LifeStage,
			d.ConfidenceRaw, d.ConfidenceCalibrated, d.ConfidenceLabel, d.IsReliable, d.Urgency, referenceID, payload)
		if err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}
	return nil
}

// MarkFailed transitions a processing analysis to failed.
func (r *pgRepo) MarkFailed(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE analyses
		SET status = $2, error_code = $3, error_message = $4, error_retryable = $5,
		    completed_at = $6, updated_at = now()
		WHERE id = $1 AND status IN ($7, $8)`,
		id, StatusFailed, code, message, retryable, completedAt, StatusProcessing, StatusQueued)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireTransition(res)
}

func requireTransition(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTerminalConflict
	}
	return nil
}

func scanAnalysis(scan func(dest ...any) error) (*Analysis, error) {
	var (
		a             Analysis
		qualityRaw    []byte
		resultRaw     []byte
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := scan(
		&a.ID, &a.SampleID, &a.UserID, &a.Status,
		&a.SampleType, &a.CollectionDate, &a.Location, &a.Notes,
		&a.Provider, &a.Model,
		&qualityRaw, &resultRaw, &a.OverallUrgency,
		&a.ErrorCode, &a.ErrorMessage, &a.ErrorRetryable,
		&startedAt, &completedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if len(qualityRaw) > 0 {
		var q imaging.QualityReport
		if err := json.Unmarshal(qualityRaw, &q); err != nil {
			return nil, fmt.Errorf("decode quality report: %w", err)
		}
		a.QualityReport = &q
	}
	if len(resultRaw) > 0 {
		var res Result
		if err := json.Unmarshal(resultRaw, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		a.Result = &res
	}
	return &a, nil
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case *imaging.QualityReport:
		if typed == nil {
			return nil, nil
		}
	case *Result:
		if typed == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return data, nil
}
