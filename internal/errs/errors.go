// Package errs provides the unified error type used across the Kilombo data layer.
//
// Every subsystem (connection manager, repositories, configuration store)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a repository, wrap native errors:
//	return errs.Wrap(errs.ErrKindIntegrityViolation, "duplicate email", mysqlErr)
//
//	// In a handler, check the error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
// All backends (MySQL, Postgres, SQLite) map their native errors to one
// of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // lookup miss, existence check failed
	ErrKindNotFoundOnMutate           // UPDATE/DELETE affected fewer rows than expected
	ErrKindValidationFailed           // bad arguments or entity from the caller
	ErrKindIntegrityViolation         // unique / foreign key constraint (SQLSTATE class 23)
	ErrKindSyntaxOrAccess             // SQL syntax or access rule (SQLSTATE class 42)
	ErrKindConnectionFailed           // cannot reach the backend, retries exhausted
	ErrKindHostUnreachable            // host refused, unknown or unreachable
	ErrKindAuthentication             // access denied
	ErrKindDatabaseNotFound           // unknown database / catalog
	ErrKindSchemaInvalid              // required table or column missing
	ErrKindTimeout                    // context deadline / cancellation
	ErrKindDatabase                   // generic driver failure
	ErrKindUnexpected                 // anything unclassified
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindNotFoundOnMutate:
		return "not_found_on_mutate"
	case ErrKindValidationFailed:
		return "validation_failed"
	case ErrKindIntegrityViolation:
		return "integrity_violation"
	case ErrKindSyntaxOrAccess:
		return "syntax_or_access"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindHostUnreachable:
		return "host_unreachable"
	case ErrKindAuthentication:
		return "authentication"
	case ErrKindDatabaseNotFound:
		return "database_not_found"
	case ErrKindSchemaInvalid:
		return "schema_invalid"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindDatabase:
		return "database"
	case ErrKindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all Kilombo subsystems.
type Error struct {
	Kind     ErrKind
	Op       string // operation name, e.g. "update customer"
	Message  string
	SQLState string // vendor state code when the cause is a driver error
	Cause    error  // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithOp sets the operation name and returns e for chaining.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithSQLState records the vendor state code and returns e for chaining.
func (e *Error) WithSQLState(state string) *Error {
	e.SQLState = state
	return e
}

// --- Predicates ---

// IsNotFound reports whether err represents a lookup miss.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsNotFoundOnMutate reports whether a mutating statement affected no rows.
func IsNotFoundOnMutate(err error) bool {
	return KindOf(err) == ErrKindNotFoundOnMutate
}

// IsValidationFailed reports whether err was caused by bad input from the caller.
func IsValidationFailed(err error) bool {
	return KindOf(err) == ErrKindValidationFailed
}

// IsIntegrityViolation reports whether err is a constraint violation.
func IsIntegrityViolation(err error) bool {
	return KindOf(err) == ErrKindIntegrityViolation
}

// IsSyntaxOrAccess reports whether err is a SQL syntax or access rule failure.
func IsSyntaxOrAccess(err error) bool {
	return KindOf(err) == ErrKindSyntaxOrAccess
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsSchemaInvalid reports whether err is a schema validation failure.
func IsSchemaInvalid(err error) bool {
	return KindOf(err) == ErrKindSchemaInvalid
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsUnexpected reports whether err could not be classified.
func IsUnexpected(err error) bool {
	return KindOf(err) == ErrKindUnexpected
}

// KindOf extracts the ErrKind of the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// HasKind reports whether any *Error in the chain carries kind.
// Useful when a connection failure wraps its classified root cause.
func HasKind(err error, kind ErrKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}
