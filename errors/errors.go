// Package errors defines the shared error values used across warden.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that an operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrConnection reports a failure to reach a remote backend. It is
	// distinct from a cache miss: callers must not treat it as absence.
	ErrConnection = errors.New("connection failed")
	// ErrInvalidLockKey reports a worker-lock key outside [A-Za-z0-9_]+.
	ErrInvalidLockKey = errors.New("invalid lock key")
	// ErrInvalidInterval reports a non-positive maintenance interval.
	ErrInvalidInterval = errors.New("interval must be positive")
)

// SerializationError reports that a value could not be converted to the
// store's wire format. The store is left unchanged when it is returned.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
