package quotes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores quotes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Quote
	byToken map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Quote),
		byToken: make(map[string]string),
	}
}

// Create stores the quote.
func (r *MemoryRepo) Create(ctx context.Context, q Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[q.ID] = q
	r.byToken[q.Token] = q.ID
	return nil
}

// List returns all quotes, newest first.
func (r *MemoryRepo) List(ctx context.Context) ([]Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Quote, 0, len(r.byID))
	for _, q := range r.byID {
		out = append(out, q)
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

// GetByID returns a quote by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byID[id]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return q, nil
}

// GetByToken returns the quote owning token.
func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[token]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return r.byID[id], nil
}

// Transition flips a pending quote to target under the write lock.
func (r *MemoryRepo) Transition(ctx context.Context, id, target string) (Quote, bool, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		return Quote{}, false, ErrNotFound
	}
	if q.Status != StatusPending {
		return q, false, nil
	}
	q.Status = target
	r.byID[id] = q
	return q, true, nil
}

var _ Repo = (*MemoryRepo)(nil)
