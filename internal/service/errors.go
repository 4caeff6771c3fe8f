package service

import "errors"

// Error kinds mapped to HTTP statuses at the server boundary
var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("operation not permitted")
	ErrNotClaimable = errors.New("user may not submit expense claims")
)
