package samples

import (
	"context"
	"sort"
	"sync"
)

type memoryRepo struct {
	mu      sync.RWMutex
	samples map[string]*Sample
}

// NewMemoryRepo creates an in-memory sample repository for tests and local runs.
func NewMemoryRepo() Repo {
	return &memoryRepo{samples: make(map[string]*Sample)}
}

func (r *memoryRepo) Create(ctx context.Context, s *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.samples[s.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, userID, id string) (*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Sample, error) {
	all := r.sortedByUser(userID)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryRepo) Latest(ctx context.Context, userID string) (*Sample, error) {
	all := r.sortedByUser(userID)
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return all[0], nil
}

func (r *memoryRepo) sortedByUser(userID string) []*Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Sample
	for _, s := range r.samples {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
