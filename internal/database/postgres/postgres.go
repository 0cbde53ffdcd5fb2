// Package postgres registers the PostgreSQL dialect backed by pgx.
package postgres

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" driver

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
)

const defaultPort = 5432

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string       { return config.DriverPostgres }
func (Dialect) DriverName() string { return "pgx" }

// SupportsReturning is true: pgx does not implement LastInsertId.
func (Dialect) SupportsReturning() bool { return true }

// DSN builds a postgres:// URL and checks it parses as a pgx config.
func (Dialect) DSN(cfg config.ConnectionConfig, connectTimeout time.Duration) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(connectTimeout)))
	q.Set("application_name", "kilombo")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	dsn := u.String()

	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	return dsn, nil
}

func (Dialect) ColumnsQuery() string {
	return `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name   = ?`
}

func (Dialect) Inspect(err error) (database.DriverError, bool) {
	return inspect(err)
}

// timeoutSeconds rounds up; libpq treats 0 as "wait forever".
func timeoutSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
