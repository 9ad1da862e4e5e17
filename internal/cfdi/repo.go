package cfdi

import (
	"context"
	"time"
)

// JobRepo persists issuance jobs. Jobs are never deleted.
type JobRepo interface {
	// Create fails with ErrDuplicateJob when the quote already has a job.
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, id string) (Job, error)
	GetByQuoteID(ctx context.Context, quoteID string) (Job, error)
	// List returns jobs newest first; an empty status means all.
	List(ctx context.Context, status string) ([]Job, error)
	// Claim increments attempts on a pending job and stamps updated_at.
	// It fails with ErrNotFound or ErrNotPending.
	Claim(ctx context.Context, id string, now time.Time) (Job, error)
	// Save writes status, last_error and updated_at for a job still pending
	// at the same attempt count, else ErrStaleJob.
	Save(ctx context.Context, job Job) error
}

// DocumentRepo persists generated documents.
type DocumentRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByUUID(ctx context.Context, uuid string) (Document, error)
	ListByQuoteID(ctx context.Context, quoteID string) ([]Document, error)
}
