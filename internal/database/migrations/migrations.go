// Package migrations creates the CRM schema with goose. Each engine has its
// own directory of SQL files embedded in the binary.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/errs"
	"github.com/kilombo/crm/internal/logger"
)

//go:embed mysql/*.sql postgres/*.sql sqlite/*.sql
var FS embed.FS

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// gooseDialect maps a config driver to goose's dialect name and the
// embedded directory holding its migrations.
func gooseDialect(driver string) (dialect, dir string, err error) {
	switch driver {
	case config.DriverMySQL:
		return "mysql", "mysql", nil
	case config.DriverPostgres:
		return "postgres", "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", "sqlite", nil
	default:
		return "", "", errs.Newf(errs.ErrKindValidationFailed, "no hay migraciones para el driver %q", driver)
	}
}

// Up applies every pending migration for driver.
func Up(ctx context.Context, db *sql.DB, driver string, log *logger.Logger) error {
	return run(ctx, driver, log, func(dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// Down rolls back the most recent migration for driver.
func Down(ctx context.Context, db *sql.DB, driver string, log *logger.Logger) error {
	return run(ctx, driver, log, func(dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

// Version returns the current schema version recorded by goose.
func Version(ctx context.Context, db *sql.DB, driver string, log *logger.Logger) (int64, error) {
	var version int64
	err := run(ctx, driver, log, func(string) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func run(ctx context.Context, driver string, log *logger.Logger, fn func(dir string) error) error {
	dialect, dir, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	if log == nil {
		log = logger.Nop()
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{log: log.With().Str("component", "migrations").Logger()})
	if err := goose.SetDialect(dialect); err != nil {
		return errs.Wrap(errs.ErrKindUnexpected, "dialecto de migraciones inválido", err).WithOp("migrate")
	}

	if err := fn(dir); err != nil {
		return errs.Wrap(errs.ErrKindDatabase, fmt.Sprintf("migraciones %s fallidas", driver), err).WithOp("migrate")
	}
	return ctx.Err()
}

// gooseLogger routes goose output through the application logger.
type gooseLogger struct {
	log *logger.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(format, v...)
}

// Fatalf is logged as an error; goose's own Fatalf would exit the process.
func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Errorf(format, v...)
}
