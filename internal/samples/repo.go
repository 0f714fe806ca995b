package samples

import "context"

// Repo persists sample metadata.
type Repo interface {
	Create(ctx context.Context, s *Sample) error
	GetByID(ctx context.Context, userID, id string) (*Sample, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Sample, error)
	Latest(ctx context.Context, userID string) (*Sample, error)
}
