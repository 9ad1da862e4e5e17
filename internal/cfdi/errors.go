package cfdi

import "errors"

var (
	ErrNotFound         = errors.New("job not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrNotPending       = errors.New("job not pending")
	ErrStaleJob         = errors.New("job changed concurrently")
	ErrDuplicateJob     = errors.New("job already exists for quote")
	ErrGeneration       = errors.New("document generation failed")
	ErrValidation       = errors.New("validation error")
)
