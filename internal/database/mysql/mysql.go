// Package mysql registers the MySQL dialect, the default engine of Kilombo.
// Import it for side effects:
//
//	import _ "github.com/kilombo/crm/internal/database/mysql"
package mysql

import (
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
)

const defaultPort = 3306

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for MySQL.
type Dialect struct{}

func (Dialect) Name() string       { return config.DriverMySQL }
func (Dialect) DriverName() string { return "mysql" }

// SupportsReturning is false: MySQL reports generated keys through LastInsertId.
func (Dialect) SupportsReturning() bool { return false }

// DSN builds user:pass@tcp(host:port)/db with parseTime, clientFoundRows and
// autocommit enabled. clientFoundRows makes an UPDATE that changes nothing
// still report the matched row.
func (Dialect) DSN(cfg config.ConnectionConfig, connectTimeout time.Duration) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	c := gomysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Timeout = connectTimeout
	c.Params = map[string]string{"autocommit": "true"}

	return c.FormatDSN(), nil
}

func (Dialect) ColumnsQuery() string {
	return `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?`
}

func (Dialect) Inspect(err error) (database.DriverError, bool) {
	return inspect(err)
}
