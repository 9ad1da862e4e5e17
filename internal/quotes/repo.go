package quotes

import "context"

// Repo persists quotes.
type Repo interface {
	Create(ctx context.Context, q Quote) error
	List(ctx context.Context) ([]Quote, error)
	GetByID(ctx context.Context, id string) (Quote, error)
	GetByToken(ctx context.Context, token string) (Quote, error)
	// Transition moves a pending quote to target in one atomic step and
	// returns the quote as stored afterwards. changed is false when the quote
	// was no longer pending, in which case it is returned untouched.
	Transition(ctx context.Context, id, target string) (q Quote, changed bool, err error)
}
