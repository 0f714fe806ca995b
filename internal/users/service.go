package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Service exposes user account operations.
type Service struct {
	repo Repo
}

// NewService creates a user service.
func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Get returns the user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// EnsureAccount upserts a user identified by email, creating the account
// with a fresh ID on first sign-in. Returns the stored user and whether
// it was newly created.
func (s *Service) EnsureAccount(ctx context.Context, email, name, picture string) (*User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, fmt.Errorf("email is required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	created := existing == nil
	u := &User{
		ID:      uuid.NewString(),
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	if existing != nil {
		u.ID = existing.ID
	}

	stored, err := s.repo.Upsert(ctx, u)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
	return stored, created, nil
}
