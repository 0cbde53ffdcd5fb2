package database

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kilombo/crm/internal/config"
)

// Conn is the single managed connection. It embeds *sqlx.DB capped at one
// open connection, so every statement runs on the same session.
type Conn struct {
	*sqlx.DB
	ID       uuid.UUID
	Dialect  Dialect
	OpenedAt time.Time

	closed        atomic.Bool
	lastValidated atomic.Int64 // unix nanos of the last successful probe
}

// Opener opens a raw connection. Implementations return native driver
// errors; the manager classifies them.
type Opener func(ctx context.Context, cfg config.ConnectionConfig) (*Conn, error)

// OpenSQL is the default Opener: it resolves the dialect, opens the handle
// through database/sql, applies single-connection limits and pings it within
// ConnectTimeout.
func OpenSQL(ctx context.Context, cfg config.ConnectionConfig) (*Conn, error) {
	d, err := Lookup(cfg.DriverName())
	if err != nil {
		return nil, err
	}
	dsn, err := d.DSN(cfg, ConnectTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewConn(db, d), nil
}

// NewConn wraps an already opened handle.
func NewConn(db *sqlx.DB, d Dialect) *Conn {
	return &Conn{
		DB:       db,
		ID:       uuid.New(),
		Dialect:  d,
		OpenedAt: time.Now(),
	}
}

// Close releases the handle. Calling it more than once is safe.
func (c *Conn) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.DB.Close()
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c == nil || c.closed.Load()
}

// Probe runs the liveness probe within ValidationQueryTimeout.
func (c *Conn) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ValidationQueryTimeout)
	defer cancel()

	var one int
	if err := c.DB.QueryRowxContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return err
	}
	c.lastValidated.Store(time.Now().UnixNano())
	return nil
}

// LastValidatedAt is when the connection last passed Probe, or OpenedAt
// if it never has.
func (c *Conn) LastValidatedAt() time.Time {
	if ns := c.lastValidated.Load(); ns != 0 {
		return time.Unix(0, ns)
	}
	return c.OpenedAt
}
