package users

import (
	"context"
	"sync"
	"time"
)

type memoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

// NewMemoryRepo creates an in-memory user repository for tests and local runs.
func NewMemoryRepo() Repo {
	return &memoryRepo{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) Upsert(ctx context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.byEmail[u.Email]; ok {
		existing.Name = u.Name
		existing.Picture = u.Picture
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}
	cp := *u
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = &cp
	out := cp
	return &out, nil
}
