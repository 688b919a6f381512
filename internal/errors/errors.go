package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrPermissionDenied - backend refused the request (401/403)
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - invalid input (400, local validation, bad configuration)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found (404)
	ErrNotFound = errors.New("not found")

	// ErrConflict - conflict (409, proposal already consumed)
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (network, timeout, 5xx); reads degrade to empty, writes reconcile by refetch
	ErrTransient = errors.New("transient error")

	// ErrIllegalTransition - lifecycle event not allowed in the current mission state
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrImmutableField - edit touches a field that is read-only in the current mission state
	ErrImmutableField = errors.New("immutable field")

	// ErrMalformedResponse - backend body could not be decoded into the expected envelope
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)
