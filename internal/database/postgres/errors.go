package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kilombo/crm/internal/database"
)

// PostgreSQL SQLSTATE codes used when the server gave none.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrConnectionException = "08000"
	pgErrUnableToConnect     = "08001"
)

// inspect converts a pgx error into a DriverError. Server errors carry their
// SQLSTATE; failures to establish the connection are reported under class 08
// unless the server rejected it with its own code (28P01, 3D000, ...).
func inspect(err error) (database.DriverError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return database.DriverError{
			Message:    pgErr.Message,
			SQLState:   pgErr.Code,
			Recognized: true,
		}, true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return database.DriverError{
			Message:    connErr.Error(),
			SQLState:   pgErrUnableToConnect,
			Recognized: true,
		}, true
	}

	if pgconn.Timeout(err) {
		return database.DriverError{
			Message:    err.Error(),
			SQLState:   pgErrConnectionException,
			Recognized: true,
		}, true
	}
	return database.DriverError{}, false
}
