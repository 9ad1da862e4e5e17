package quotes

import (
	"context"
	"errors"
	"strings"
	"time"

	"backoffice/internal/shared/metrics"
	"backoffice/internal/shared/ratelimit"
	"backoffice/internal/shared/telemetry"
	"backoffice/internal/shared/util"
)

// Token rate limits per operation.
const (
	CheckLimit   = 10
	ConfirmLimit = 5
	TokenWindow  = 60 * time.Second
)

// TokenGuard gates public, token-based access to quote approval.
type TokenGuard struct {
	Repo    Repo
	Service *Service
	Limiter ratelimit.Limiter
	Now     func() time.Time
}

func (g *TokenGuard) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}

// Check reports whether token can still approve a quote. Unknown and expired
// tokens both answer ok=false.
func (g *TokenGuard) Check(ctx context.Context, token string) (CheckResult, error) {
	token, err := g.admit("check", token, CheckLimit)
	if err != nil {
		return CheckResult{}, err
	}

	q, err := g.Repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logCheck(token, "", false)
			return CheckResult{OK: false}, nil
		}
		return CheckResult{}, err
	}
	if q.TokenExpired(g.now()) {
		logCheck(token, q.ID, false)
		return CheckResult{OK: false}, nil
	}
	logCheck(token, q.ID, true)
	id := q.ID
	return CheckResult{OK: true, QuoteID: &id}, nil
}

// Confirm approves the quote owning token.
func (g *TokenGuard) Confirm(ctx context.Context, token string) (Quote, error) {
	token, err := g.admit("confirm", token, ConfirmLimit)
	if err != nil {
		return Quote{}, err
	}

	q, err := g.Repo.GetByToken(ctx, token)
	if err != nil {
		return Quote{}, err
	}
	if q.TokenExpired(g.now()) {
		telemetry.Info("quote.token.expired", map[string]any{"quote_id": q.ID})
		return Quote{}, ErrTokenExpired
	}
	return g.Service.Approve(ctx, q.ID, PathToken)
}

func (g *TokenGuard) admit(op, token string, limit int) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenRequired
	}
	if g.Limiter == nil {
		return token, nil
	}
	ok, retryAfter := g.Limiter.Allow(op+":"+token, limit, TokenWindow)
	if !ok {
		metrics.IncTokenRateLimited(op)
		telemetry.Warn("quote.token.rate_limited", map[string]any{
			"op":             op,
			"token_hash":     util.Fingerprint(token),
			"retry_after_ms": retryAfter.Milliseconds(),
		})
		return "", &RateLimitError{Op: op, RetryAfter: retryAfter}
	}
	return token, nil
}

func logCheck(token, quoteID string, ok bool) {
	telemetry.Debug("quote.token.check", map[string]any{
		"token_hash": util.Fingerprint(token),
		"quote_id":   quoteID,
		"ok":         ok,
	})
}
