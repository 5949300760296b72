package engine

import "fmt"

// Status is one of the wire-level error codes of §7.
type Status string

const (
	StatusInvalidArgument    Status = "INVALID_ARGUMENT"
	StatusNotFound           Status = "NOT_FOUND"
	StatusAlreadyExists      Status = "ALREADY_EXISTS"
	StatusFailedPrecondition Status = "FAILED_PRECONDITION"
	StatusAborted            Status = "ABORTED"
	StatusInternal           Status = "INTERNAL"
)

// HTTPCode returns the HTTP status code the transport layer maps each
// Status to (§7).
func (s Status) HTTPCode() int {
	switch s {
	case StatusInvalidArgument, StatusAlreadyExists, StatusFailedPrecondition:
		return 400
	case StatusNotFound:
		return 404
	case StatusAborted:
		return 409
	default:
		return 500
	}
}

// StatusError is the engine's uniform error type: every failure the engine
// returns to its caller carries one of §7's status codes plus a message.
type StatusError struct {
	Code    Status
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newStatusError(code Status, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied is the engine's rules-evaluation denial; it always maps
// to the production PERMISSION_DENIED semantics, carried here as
// INVALID_ARGUMENT per §7's taxonomy (the spec defines no dedicated denied
// status, so a rules denial is reported as a rejected argument — the write
// or read was well-formed but not permitted).
func PermissionDenied(path string, reason string) *StatusError {
	return newStatusError(StatusInvalidArgument, "permission denied for %q: %s", path, reason)
}
