package quotes

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const quoteColumns = `id, customer, total, status, token, created_at, token_expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new quote.
func (r *PGRepo) Create(ctx context.Context, q Quote) error {
	const query = `
INSERT INTO quotes (id, customer, total, status, token, created_at, token_expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		q.ID,
		q.Customer,
		q.Total,
		q.Status,
		q.Token,
		q.CreatedAt,
		nullTime(q.TokenExpiresAt),
	)
	return err
}

// List returns all quotes, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Quote, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// GetByID returns a quote by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Quote, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	return scanOne(row)
}

// GetByToken returns the quote owning token.
func (r *PGRepo) GetByToken(ctx context.Context, token string) (Quote, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE token = $1`, token)
	return scanOne(row)
}

// Transition uses a conditional update so only one caller can move the quote
// out of pending. Losers read back the winning state.
func (r *PGRepo) Transition(ctx context.Context, id, target string) (Quote, bool, error) {
	row := r.DB.QueryRowContext(ctx, `
UPDATE quotes SET status = $2
WHERE id = $1 AND status = 'pending'
RETURNING `+quoteColumns, id, target)
	q, err := scanOne(row)
	if err == nil {
		return q, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Quote{}, false, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Quote{}, false, err
	}
	return current, false, nil
}

func scanOne(row rowScanner) (Quote, error) {
	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, err
	}
	return q, nil
}

func scanQuote(row rowScanner) (Quote, error) {
	var q Quote
	var expires sql.NullTime
	if err := row.Scan(&q.ID, &q.Customer, &q.Total, &q.Status, &q.Token, &q.CreatedAt, &expires); err != nil {
		return Quote{}, err
	}
	q.CreatedAt = q.CreatedAt.UTC()
	if expires.Valid {
		t := expires.Time.UTC()
		q.TokenExpiresAt = &t
	}
	return q, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ Repo = (*PGRepo)(nil)
