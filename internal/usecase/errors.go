package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrFetchFailure means both the primary and the fallback ranking source failed.
	ErrFetchFailure = errors.New("ranking fetch failed")
	// ErrStaleQuery means a newer selection superseded the query before it completed.
	ErrStaleQuery = errors.New("stale ranking query")
)
