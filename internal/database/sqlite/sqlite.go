// Package sqlite registers the embedded dialect. The database is a single
// file, used for offline installs and for tests.
package sqlite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
)

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for modernc.org/sqlite.
type Dialect struct{}

func (Dialect) Name() string            { return config.DriverSQLite }
func (Dialect) DriverName() string      { return "sqlite" }
func (Dialect) SupportsReturning() bool { return false }

// DSN opens cfg.Database as a file URI with foreign keys enforced. The
// connect timeout doubles as the busy timeout.
func (Dialect) DSN(cfg config.ConnectionConfig, connectTimeout time.Duration) (string, error) {
	path := strings.TrimSpace(cfg.Database)
	if path == "" {
		return "", errors.New("sqlite database path is empty")
	}
	path = strings.TrimPrefix(path, "file:")
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_time_format=sqlite",
		path, connectTimeout.Milliseconds()), nil
}

func (Dialect) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info(?)`
}

func (Dialect) Inspect(err error) (database.DriverError, bool) {
	var sqlErr *msqlite.Error
	if !errors.As(err, &sqlErr) {
		return database.DriverError{}, false
	}
	code := sqlErr.Code()
	return database.DriverError{
		Message:    sqlErr.Error(),
		SQLState:   stateFor(code),
		Number:     code,
		Recognized: true,
	}, true
}

// stateFor maps SQLite result codes onto the SQLSTATE classes used by the
// server engines. Extended codes share the primary code in their low byte.
func stateFor(code int) string {
	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return "23000"
	case sqlite3.SQLITE_ERROR:
		return "42000"
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM:
		return "28000"
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB:
		return "3D000"
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR:
		return "08006"
	default:
		return ""
	}
}
