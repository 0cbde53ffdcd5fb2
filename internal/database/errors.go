package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/kilombo/crm/internal/errs"
)

// DriverError is the engine-neutral view of a native driver error.
type DriverError struct {
	Message    string
	SQLState   string // five-character SQLSTATE, empty when the driver has none
	Number     int    // vendor error number, 0 when the driver has none
	Recognized bool   // true when the error came from a database driver or the network
}

// Class returns the two-character SQLSTATE class, or "".
func (e DriverError) Class() string {
	if len(e.SQLState) < 2 {
		return ""
	}
	return strings.ToUpper(e.SQLState[:2])
}

// Connectivity reports whether the error means the link to the server is gone.
func (e DriverError) Connectivity() bool {
	return e.Class() == "08" || containsAny(strings.ToLower(e.Message), hostKeywords)
}

// Inspect turns any error into a DriverError. Context deadlines are
// recognized first, then registered dialects get a look, then network errors
// and driver.ErrBadConn are recognized generically.
func Inspect(err error) DriverError {
	if err == nil {
		return DriverError{}
	}
	// context.DeadlineExceeded also satisfies net.Error, so it goes first.
	if errors.Is(err, context.DeadlineExceeded) {
		return DriverError{Message: err.Error(), Recognized: true}
	}
	for _, d := range registered() {
		if de, ok := d.Inspect(err); ok {
			return de
		}
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return DriverError{Message: err.Error(), SQLState: "08001", Recognized: true}
	case errors.Is(err, driver.ErrBadConn):
		return DriverError{Message: err.Error(), SQLState: "08003", Recognized: true}
	}
	return DriverError{Message: err.Error()}
}

var (
	hostKeywords = []string{
		"communications link failure",
		"connection refused",
		"no such host",
		"unknown host",
		"i/o timeout",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	}
	authKeywords = []string{
		"access denied",
		"authentication failed",
	}
	databaseKeywords = []string{
		"unknown database",
		"unable to open database",
	}
)

// missingDatabase matches postgres' `database "x" does not exist` without
// catching other missing objects such as `role "x" does not exist`.
func missingDatabase(msg string) bool {
	return containsAny(msg, databaseKeywords) ||
		(strings.Contains(msg, `database "`) && strings.Contains(msg, "does not exist"))
}

// Classify maps a connection-establishment failure to a diagnostic category.
// Message keywords win over SQLSTATE, because several engines report an
// unknown database under the generic syntax class.
func Classify(e DriverError) ErrorType {
	msg := strings.ToLower(e.Message)
	switch {
	case containsAny(msg, hostKeywords):
		return ErrorTypeHost
	case containsAny(msg, authKeywords):
		return ErrorTypeAuthentication
	case missingDatabase(msg):
		return ErrorTypeDatabase
	}

	switch e.Class() {
	case "08":
		return ErrorTypeHost
	case "28":
		return ErrorTypeAuthentication
	case "3D":
		return ErrorTypeDatabase
	}

	if e.Recognized {
		return ErrorTypeConnection
	}
	return ErrorTypeUnknown
}

// ClassifyState maps a statement failure's SQLSTATE to a repository error kind.
// ErrKindUnknown means the caller decides.
func ClassifyState(sqlState string) errs.ErrKind {
	switch (DriverError{SQLState: sqlState}).Class() {
	case "23":
		return errs.ErrKindIntegrityViolation
	case "42":
		return errs.ErrKindSyntaxOrAccess
	default:
		return errs.ErrKindUnknown
	}
}

// kindFor is the errs kind carried by a failed connection attempt.
func kindFor(t ErrorType) errs.ErrKind {
	switch t {
	case ErrorTypeHost:
		return errs.ErrKindHostUnreachable
	case ErrorTypeAuthentication:
		return errs.ErrKindAuthentication
	case ErrorTypeDatabase:
		return errs.ErrKindDatabaseNotFound
	default:
		return errs.ErrKindConnectionFailed
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
