package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/database"
)

func TestDialect_DSN(t *testing.T) {
	cfg := config.ConnectionConfig{
		Driver:   config.DriverPostgres,
		Host:     "pg.local",
		Username: "crm",
		Password: "p@ss:word",
		Database: "kilombo",
	}

	dsn, err := Dialect{}.DSN(cfg, 5*time.Second)
	require.NoError(t, err)

	parsed, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "pg.local", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "crm", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Password)
	assert.Equal(t, "kilombo", parsed.Database)
	assert.Equal(t, 5*time.Second, parsed.ConnectTimeout)
}

func TestTimeoutSeconds(t *testing.T) {
	assert.Equal(t, 1, timeoutSeconds(0))
	assert.Equal(t, 1, timeoutSeconds(200*time.Millisecond))
	assert.Equal(t, 5, timeoutSeconds(5*time.Second))
	assert.Equal(t, 3, timeoutSeconds(2500*time.Millisecond))
}

func TestDialect_Registered(t *testing.T) {
	d, err := database.Lookup("postgres")
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.DriverName())
	assert.True(t, d.SupportsReturning())
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantType database.ErrorType
		wantKind string
	}{
		{
			name:     "unique violation",
			err:      &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
			wantOK:   true,
			wantType: database.ErrorTypeConnection,
			wantKind: "integrity_violation",
		},
		{
			name:     "password authentication",
			err:      fmt.Errorf("connect: %w", &pgconn.PgError{Code: "28P01", Message: "password authentication failed for user \"crm\""}),
			wantOK:   true,
			wantType: database.ErrorTypeAuthentication,
			wantKind: "unknown",
		},
		{
			name:     "missing database",
			err:      &pgconn.PgError{Code: "3D000", Message: "database \"kilombo\" does not exist"},
			wantOK:   true,
			wantType: database.ErrorTypeDatabase,
			wantKind: "unknown",
		},
		{
			name:     "unknown role",
			err:      &pgconn.PgError{Code: "28000", Message: "role \"bob\" does not exist"},
			wantOK:   true,
			wantType: database.ErrorTypeAuthentication,
			wantKind: "unknown",
		},
		{
			name:     "undefined table",
			err:      &pgconn.PgError{Code: "42P01", Message: "relation \"clientes\" does not exist"},
			wantOK:   true,
			wantType: database.ErrorTypeConnection,
			wantKind: "syntax_or_access",
		},
		{
			name:   "not a pgx error",
			err:    errors.New("boom"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de, ok := inspect(tt.err)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, database.Classify(de))
			assert.Equal(t, tt.wantKind, database.ClassifyState(de.SQLState).String())
		})
	}
}
