package quotes

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("quote not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTokenRequired     = errors.New("token required")
	ErrTokenExpired      = errors.New("token expired")
	ErrRateLimited       = errors.New("rate limited")
	ErrValidation        = errors.New("validation error")
)

// RateLimitError is returned when a token bucket is full. It matches ErrRateLimited.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.Op }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
