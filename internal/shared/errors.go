package shared

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a workflow failure into one of the stable,
// machine-readable categories surfaced to callers.
type ErrorKind string

const (
	// KindValidation marks malformed or missing input.
	KindValidation ErrorKind = "validation"
	// KindReference marks a dangling or inactive foreign reference.
	KindReference ErrorKind = "reference"
	// KindConflict marks a state-machine violation or version mismatch.
	KindConflict ErrorKind = "conflict"
	// KindPrecondition marks an action on an entity not in the required state.
	KindPrecondition ErrorKind = "precondition"
	// KindAuthorization marks a role lacking permission for the operation.
	KindAuthorization ErrorKind = "authorization"
	// KindTimeout marks a storage operation that exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindNotFound marks a missing resource.
	KindNotFound ErrorKind = "not_found"
)

// Error carries a kind, a human-readable message and optional per-field
// detail for validation failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields builds a validation error with per-field messages.
func ValidationFields(message string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Referencef builds a reference error.
func Referencef(format string, args ...any) error {
	return &Error{Kind: KindReference, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf builds a precondition error.
func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf builds an authorization error.
func Authorizationf(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Timeoutf builds a timeout error wrapping the underlying cause.
func Timeoutf(cause error, format string, args ...any) error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...), cause: cause}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Prefixf prepends context to err's message while keeping its kind and
// per-field detail, so transport mapping still sees the original
// classification. Unclassified errors are wrapped plainly.
func Prefixf(err error, format string, args ...any) error {
	prefix := fmt.Sprintf(format, args...)
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return &Error{Kind: e.Kind, Message: prefix + ": " + e.Message, Fields: e.Fields, cause: e.cause}
}

// KindOf extracts the kind from err, defaulting to an empty kind for
// unclassified failures. Context deadline expiry is reported as timeout so
// storage-layer cancellations surface with the right kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// FieldsOf returns the per-field detail, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
