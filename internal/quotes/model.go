package quotes

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Quote is a priced proposal awaiting approval.
type Quote struct {
	ID             string     `json:"id"`
	Customer       string     `json:"customer"`
	Total          float64    `json:"total"`
	Status         string     `json:"status"`
	Token          string     `json:"token"`
	CreatedAt      time.Time  `json:"created_at"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
}

// TokenExpired reports whether the approval token is past its expiry at now.
// Quotes without an expiry never expire.
func (q Quote) TokenExpired(now time.Time) bool {
	if q.TokenExpiresAt == nil {
		return false
	}
	return q.TokenExpiresAt.UTC().Before(now.UTC())
}

// CheckResult is the answer to a token check.
type CheckResult struct {
	OK      bool    `json:"ok"`
	QuoteID *string `json:"quote_id"`
}
