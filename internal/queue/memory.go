package queue

import (
	"context"
	"sync"
)

// Memory is an in-process FIFO used in tests, dev, and as the broker fallback.
type Memory struct {
	mu    sync.Mutex
	items []string
}

// NewMemory returns an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{}
}

func (q *Memory) Push(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	q.items = append(q.items, ref)
	q.mu.Unlock()
	return nil
}

func (q *Memory) Pop(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false, nil
	}
	ref := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return ref, true, nil
}

// Len reports the number of queued references.
func (q *Memory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Memory) Name() string { return "memory" }

var _ Queue = (*Memory)(nil)
