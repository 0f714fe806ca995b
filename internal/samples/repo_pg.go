package samples

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type pgRepo struct {
	db *sql.DB
}

// NewPGRepo creates a Postgres-backed sample repository.
func NewPGRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

const sampleColumns = `id, user_id, file_name, mime_type, size_bytes, width, height, storage_key, COALESCE(thumbnail_key, ''), created_at`

func (r *pgRepo) Create(ctx context.Context, s *Sample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO samples (id, user_id, file_name, mime_type, size_bytes, width, height, storage_key, thumbnail_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.FileName, s.MimeType, s.SizeBytes, s.Width, s.Height, s.StorageKey, nullable(s.ThumbnailKey))
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *pgRepo) GetByID(ctx context.Context, userID, id string) (*Sample, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		WHERE id = $1 AND user_id = $2`, id, userID)
	return scanSample(row)
}

func (r *pgRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []*Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.UserID, &s.FileName, &s.MimeType, &s.SizeBytes, &s.Width, &s.Height, &s.StorageKey, &s.ThumbnailKey, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *pgRepo) Latest(ctx context.Context, userID string) (*Sample, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, userID)
	return scanSample(row)
}

func scanSample(row *sql.Row) (*Sample, error) {
	var s Sample
	err := row.Scan(&s.ID, &s.UserID, &s.FileName, &s.MimeType, &s.SizeBytes, &s.Width, &s.Height, &s.StorageKey, &s.ThumbnailKey, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sample: %w", err)
	}
	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
