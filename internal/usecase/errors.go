package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	ErrUpstream         = errors.New("upstream request failed")
	ErrTransientNetwork = errors.New("transient network failure")
	ErrRateLimited      = errors.New("upstream rate limited")
	ErrBlocked          = errors.New("upstream blocked request")
	ErrMalformedRecord  = errors.New("malformed upstream record")
)

// UpstreamError is returned by feed clients once retries for an outcome are exhausted or
// the upstream answered with a non-retryable status.
type UpstreamError struct {
	// Kind is one of ErrTransientNetwork, ErrRateLimited, ErrBlocked, or nil for a
	// non-retryable status.
	Kind       error
	StatusCode int
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream request failed: status=%d attempts=%d", e.StatusCode, e.Attempts)
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() []error {
	out := []error{ErrUpstream, ErrDependencyUnavailable}
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}
