package queue

import "context"

// Client enqueues pipeline work for detached processing.
type Client interface {
	Enqueue(ctx context.Context, m Message) error
}
