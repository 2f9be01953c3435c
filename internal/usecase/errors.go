// Package usecase holds the application services behind the tool surface.
package usecase

import "errors"

// Sentinel errors wrapped by services with fmt.Errorf("%w: detail").
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotConfigured         = errors.New("not configured")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
