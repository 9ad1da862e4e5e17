// Package queue carries job references between the enqueue side and the
// drain side. Entries are wake-up pointers only; job state lives in the
// persisted record, so a lost or duplicated entry costs a re-scan, never
// correctness.
package queue

import "context"

// Queue is an unbounded FIFO of job references.
type Queue interface {
	Push(ctx context.Context, ref string) error
	// Pop removes the oldest reference. ok is false when the queue is empty.
	Pop(ctx context.Context) (ref string, ok bool, err error)
	Name() string
}

// Pinger is implemented by broker-backed queues that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by queues holding broker connections.
type Closer interface {
	Close() error
}

// Local is implemented by queues whose entries live only in this process.
type Local interface {
	Len() int
}
