package credits

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	balances map[string]int
	events   []Event
	nextID   int64
}

// NewMemoryStore creates an in-memory credit store for tests and local runs.
func NewMemoryStore() Store {
	return &memoryStore{balances: make(map[string]int), nextID: 1}
}

func (s *memoryStore) Balance(ctx context.Context, userID string) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Balance{UserID: userID, Balance: s.balances[userID], UpdatedAt: time.Now().UTC()}, nil
}

func (s *memoryStore) Grant(ctx context.Context, userID string, amount int, reason string) (*Balance, error) {
	return s.adjust(userID, amount, reason)
}

func (s *memoryStore) Refund(ctx context.Context, userID string, amount int, reason string) (*Balance, error) {
	return s.adjust(userID, amount, reason)
}

func (s *memoryStore) DebitInTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[userID]-amount < 0 {
		return ErrInsufficientCredits
	}
	s.balances[userID] -= amount
	s.record(userID, -amount, reason)
	return nil
}

func (s *memoryStore) adjust(userID string, amount int, reason string) (*Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[userID]+amount < 0 {
		return nil, ErrInsufficientCredits
	}
	s.balances[userID] += amount
	s.record(userID, amount, reason)
	return &Balance{UserID: userID, Balance: s.balances[userID], UpdatedAt: time.Now().UTC()}, nil
}

func (s *memoryStore) record(userID string, delta int, reason string) {
	s.events = append(s.events, Event{
		ID:        s.nextID,
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
	s.nextID++
}
