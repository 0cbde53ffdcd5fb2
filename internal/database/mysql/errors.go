package mysql

import (
	"bytes"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/kilombo/crm/internal/database"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
	errRowIsReferenced = 1451
	errBadNull         = 1048
	errBadFieldError   = 1054
	errParseError      = 1064
	errNoSuchTable     = 1146
	errAccessDenied    = 1045
	errUnknownDatabase = 1049
	errConnRefused     = 2003
	errServerGone      = 2006
)

// inspect converts a MySQL driver error into a DriverError.
// Servers always send a SQLSTATE, but client-side errors do not, so the
// state is derived from the error number when missing.
func inspect(err error) (database.DriverError, bool) {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		state := string(bytes.TrimRight(myErr.SQLState[:], "\x00"))
		if state == "" {
			state = stateFor(myErr.Number)
		}
		return database.DriverError{
			Message:    myErr.Message,
			SQLState:   state,
			Number:     int(myErr.Number),
			Recognized: true,
		}, true
	}

	if errors.Is(err, gomysql.ErrInvalidConn) {
		return database.DriverError{
			Message:    "communications link failure: " + err.Error(),
			SQLState:   "08S01",
			Recognized: true,
		}, true
	}
	return database.DriverError{}, false
}

func stateFor(number uint16) string {
	switch number {
	case errDuplicateEntry, errNoReferencedRow, errRowIsReferenced, errBadNull:
		return "23000"
	case errBadFieldError, errParseError, errNoSuchTable, errUnknownDatabase:
		return "42000"
	case errAccessDenied:
		return "28000"
	case errConnRefused, errServerGone:
		return "08S01"
	default:
		return ""
	}
}
