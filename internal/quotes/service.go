package quotes

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/shared/metrics"
	"backoffice/internal/shared/telemetry"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// Trigger paths recorded on transitions.
const (
	PathStaff = "staff"
	PathToken = "token"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_approval_hook.go -package=mocks

// ApprovalHook runs whenever approve ends with the quote approved, including
// repeat approvals. Implementations must be idempotent per quote.
type ApprovalHook interface {
	QuoteApproved(ctx context.Context, q Quote) error
}

// Service implements quote creation and the approval state machine.
type Service struct {
	Repo      Repo
	OnApprove ApprovalHook
	TokenTTL  time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create stores a new pending quote with a fresh approval token.
func (s *Service) Create(ctx context.Context, customer string, total float64) (Quote, error) {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return Quote{}, fmt.Errorf("%w: customer is required", ErrValidation)
	}
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return Quote{}, fmt.Errorf("%w: total must be a non-negative amount", ErrValidation)
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	expires := now.Add(ttl)
	q := Quote{
		ID:             newQuoteID(),
		Customer:       customer,
		Total:          total,
		Status:         StatusPending,
		Token:          newToken(),
		CreatedAt:      now,
		TokenExpiresAt: &expires,
	}
	if err := s.Repo.Create(ctx, q); err != nil {
		return Quote{}, err
	}
	telemetry.Info("quote.created", map[string]any{
		"quote_id": q.ID,
		"total":    q.Total,
	})
	return q, nil
}

// List returns all quotes.
func (s *Service) List(ctx context.Context) ([]Quote, error) {
	out, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Quote{}
	}
	return out, nil
}

// Get returns a single quote.
func (s *Service) Get(ctx context.Context, id string) (Quote, error) {
	return s.Repo.GetByID(ctx, id)
}

// Approve moves a pending quote to approved. Approving an approved quote is a
// no-op success; approving a rejected one fails with ErrInvalidTransition.
func (s *Service) Approve(ctx context.Context, id, path string) (Quote, error) {
	q, err := s.transition(ctx, id, StatusApproved, path)
	if err != nil {
		return q, err
	}
	if s.OnApprove != nil {
		if err := s.OnApprove.QuoteApproved(ctx, q); err != nil {
			telemetry.Error("quote.approve_hook_failed", map[string]any{
				"quote_id": q.ID,
				"err":      err,
			})
			return q, fmt.Errorf("enqueue document for quote %s: %w", q.ID, err)
		}
	}
	return q, nil
}

// Reject moves a pending quote to rejected, symmetric to Approve.
func (s *Service) Reject(ctx context.Context, id, path string) (Quote, error) {
	return s.transition(ctx, id, StatusRejected, path)
}

func (s *Service) transition(ctx context.Context, id, target, path string) (Quote, error) {
	q, changed, err := s.Repo.Transition(ctx, id, target)
	if err != nil {
		return Quote{}, err
	}
	if changed {
		metrics.IncQuoteTransition(target, path)
		telemetry.Info("quote.transition", map[string]any{
			"quote_id": q.ID,
			"from":     StatusPending,
			"to":       target,
			"path":     path,
		})
		return q, nil
	}
	if q.Status != target {
		return q, fmt.Errorf("%w: quote %s is %s", ErrInvalidTransition, q.ID, q.Status)
	}
	return q, nil
}

func newQuoteID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
