package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/errs"
)

func open(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn, err := Dialect{}.DSN(config.ConnectionConfig{
		Driver:   config.DriverSQLite,
		Database: filepath.Join(t.TempDir(), "test.db"),
	}, time.Second)
	require.NoError(t, err)

	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDialect_DSN(t *testing.T) {
	dsn, err := Dialect{}.DSN(config.ConnectionConfig{Database: "/var/lib/kilombo.db"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "file:/var/lib/kilombo.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", dsn)

	_, err = Dialect{}.DSN(config.ConnectionConfig{}, time.Second)
	assert.Error(t, err)
}

func TestDialect_ForeignKeysEnabled(t *testing.T) {
	db := open(t)

	var fk int
	require.NoError(t, db.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestDialect_ColumnsQuery(t *testing.T) {
	db := open(t)
	_, err := db.Exec(`CREATE TABLE clientes (id INTEGER PRIMARY KEY, Nombre TEXT, email TEXT)`)
	require.NoError(t, err)

	var cols []string
	require.NoError(t, db.Select(&cols, Dialect{}.ColumnsQuery(), "clientes"))
	assert.Equal(t, []string{"id", "Nombre", "email"}, cols)

	cols = nil
	require.NoError(t, db.Select(&cols, Dialect{}.ColumnsQuery(), "missing"))
	assert.Empty(t, cols)
}

func TestDialect_InspectRealErrors(t *testing.T) {
	db := open(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `CREATE TABLE clientes (id INTEGER PRIMARY KEY, email TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO clientes (email) VALUES ('a@b.c')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO clientes (email) VALUES ('a@b.c')`)
	require.Error(t, err)
	de, ok := Dialect{}.Inspect(err)
	require.True(t, ok)
	assert.Equal(t, "23000", de.SQLState)
	assert.Equal(t, errs.ErrKindIntegrityViolation, database.ClassifyState(de.SQLState))

	_, err = db.ExecContext(ctx, `SELEC nonsense`)
	require.Error(t, err)
	de, ok = Dialect{}.Inspect(err)
	require.True(t, ok)
	assert.Equal(t, errs.ErrKindSyntaxOrAccess, database.ClassifyState(de.SQLState))
}

func TestStateFor(t *testing.T) {
	assert.Equal(t, "23000", stateFor(sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY))
	assert.Equal(t, "3D000", stateFor(sqlite3.SQLITE_CANTOPEN))
	assert.Equal(t, "08006", stateFor(sqlite3.SQLITE_BUSY))
	assert.Equal(t, "", stateFor(sqlite3.SQLITE_FULL))
}
