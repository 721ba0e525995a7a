// Package apperr holds the error taxonomy shared by the order creation pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Concrete errors match one of these through errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("request already in progress")
	ErrStore         = errors.New("store error")
	ErrFaultInjected = errors.New("random failure occurred")
)

// Kind names an error class for logs and response mapping.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindConflict      Kind = "ConflictError"
	KindStore         Kind = "StoreError"
	KindFaultInjected Kind = "FaultInjectedError"
	KindInternal      Kind = "InternalError"
)

// KindOf classifies err. Anything outside the taxonomy is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStore):
		return KindStore
	case errors.Is(err, ErrFaultInjected):
		return KindFaultInjected
	default:
		return KindInternal
	}
}

// StoreError wraps a failure returned by a backing store.
type StoreError struct {
	Store string // table or keyspace name
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError returns a *StoreError for the given store and operation.
func NewStoreError(store, op string, err error) error {
	return &StoreError{Store: store, Op: op, Err: err}
}

// Conflict reports that a request with the same fingerprint is still in flight.
func Conflict(fingerprint string) error {
	return fmt.Errorf("%w: fingerprint %s", ErrConflict, fingerprint)
}
