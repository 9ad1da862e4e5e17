package cfdi

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryJobRepo stores jobs in memory and is safe for concurrent use.
type MemoryJobRepo struct {
	mu      sync.RWMutex
	byID    map[string]Job
	byQuote map[string]string
}

// NewMemoryJobRepo constructs a MemoryJobRepo.
func NewMemoryJobRepo() *MemoryJobRepo {
	return &MemoryJobRepo{
		byID:    make(map[string]Job),
		byQuote: make(map[string]string),
	}
}

func (r *MemoryJobRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byQuote[job.QuoteID]; ok {
		return ErrDuplicateJob
	}
	r.byID[job.ID] = job
	r.byQuote[job.QuoteID] = job.ID
	return nil
}

func (r *MemoryJobRepo) GetByID(ctx context.Context, id string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (r *MemoryJobRepo) GetByQuoteID(ctx context.Context, quoteID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byQuote[quoteID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryJobRepo) List(ctx context.Context, status string) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Job, 0, len(r.byID))
	for _, job := range r.byID {
		if status == "" || job.Status == status {
			out = append(out, job)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryJobRepo) Claim(ctx context.Context, id string, now time.Time) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if job.Status != JobPending {
		return job, ErrNotPending
	}
	job.Attempts++
	job.UpdatedAt = now
	r.byID[id] = job
	return job, nil
}

func (r *MemoryJobRepo) Save(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[job.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != JobPending || current.Attempts != job.Attempts {
		return ErrStaleJob
	}
	current.Status = job.Status
	current.LastError = job.LastError
	current.UpdatedAt = job.UpdatedAt
	r.byID[job.ID] = current
	return nil
}

// MemoryDocumentRepo stores documents in memory and is safe for concurrent use.
type MemoryDocumentRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryDocumentRepo constructs a MemoryDocumentRepo.
func NewMemoryDocumentRepo() *MemoryDocumentRepo {
	return &MemoryDocumentRepo{docs: make(map[string]Document)}
}

func (r *MemoryDocumentRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.docs[doc.UUID] = doc
	r.mu.Unlock()
	return nil
}

func (r *MemoryDocumentRepo) GetByUUID(ctx context.Context, uuid string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[uuid]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

func (r *MemoryDocumentRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Document
	for _, doc := range r.docs {
		if doc.QuoteID == quoteID {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var (
	_ JobRepo      = (*MemoryJobRepo)(nil)
	_ DocumentRepo = (*MemoryDocumentRepo)(nil)
)
