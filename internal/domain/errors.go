package domain

import "errors"

// Sentinel errors shared across layers. Callers wrap them with fmt.Errorf
// and %w so errors.Is keeps matching through the added context.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)
