package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type pgRepo struct {
	db *sql.DB
}

// NewPGRepo creates a Postgres-backed user repository.
func NewPGRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

func (r *pgRepo) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(picture_url, ''), created_at, updated_at
		FROM users
		WHERE id = $1`, id)
	return scanUser(row)
}

func (r *pgRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(full_name, ''), COALESCE(picture_url, ''), created_at, updated_at
		FROM users
		WHERE email = $1`, email)
	return scanUser(row)
}

func (r *pgRepo) Upsert(ctx context.Context, u *User) (*User, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, full_name, picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (email) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    picture_url = EXCLUDED.picture_url,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, email, COALESCE(full_name, ''), COALESCE(picture_url, ''), created_at, updated_at`,
		u.ID, u.Email, u.Name, u.Picture, now)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
