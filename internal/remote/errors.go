package remote

import (
	"errors"
	"fmt"

	"github.com/calebmorris/prospector/internal/schema"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	// KindNetwork covers timeouts, connection resets, and DNS failures.
	KindNetwork ErrorKind = "network"
	// KindAuth covers authentication and configuration failures (401/403,
	// missing token).
	KindAuth ErrorKind = "auth"
	// KindMalformed covers responses that could not be decoded.
	KindMalformed ErrorKind = "malformed"
	// KindRateLimited covers 429 responses; retryable at the next tick.
	KindRateLimited ErrorKind = "rate_limited"
)

// Error is a typed fetch failure for one entity type.
type Error struct {
	Kind       ErrorKind
	EntityType schema.EntityType
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.EntityType, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is expected to clear on its own
// at a later sync tick. Auth failures need operator attention.
func (e *Error) Retryable() bool {
	return e.Kind != KindAuth
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	ok := errors.As(err, &re)
	return re, ok
}
