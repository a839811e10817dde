package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by a queue after Close.
var ErrQueueClosed = errors.New("queue closed")

// MemoryQueue is an unbounded in-process FIFO.
type MemoryQueue struct {
	mu     sync.Mutex
	items  []string
	ready  chan struct{}
	closed bool
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{ready: make(chan struct{}, 1)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, id)
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items = q.items[1:]
			if len(q.items) > 0 {
				select {
				case q.ready <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return id, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return "", ErrQueueClosed
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of waiting IDs.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *MemoryQueue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}

// Close wakes blocked consumers; IDs still queued are dropped.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.items = nil
		close(q.ready)
	}
	return nil
}
