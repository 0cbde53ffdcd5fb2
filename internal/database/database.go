// Package database owns the single live connection of the application.
//
// The Manager hands out a validated *Conn, reopening it with linear backoff
// when the previous one died, and refuses to publish a connection whose
// schema is missing required tables or columns. Engine specifics live in the
// mysql, postgres and sqlite subpackages, which register a Dialect on import.
package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/errs"
	"github.com/kilombo/crm/internal/logger"
	"github.com/kilombo/crm/internal/metrics"
)

// Manager owns at most one live connection. It is safe for concurrent use.
type Manager struct {
	mu   sync.RWMutex
	src  ConfigSource
	cfg  config.ConnectionConfig
	conn *Conn
	opts options
	log  *logger.Logger

	opens       atomic.Int64
	validations atomic.Int64
	failures    atomic.Int64
}

// Stats are lifetime counters of a Manager.
type Stats struct {
	Opens             int64 `json:"opens"`
	SchemaValidations int64 `json:"schema_validations"`
	FailedAttempts    int64 `json:"failed_attempts"`
}

// NewManager creates a Manager reading its settings from src.
// No connection is opened until the first Acquire.
func NewManager(src ConfigSource, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		src:  src,
		cfg:  src.Connection(),
		opts: o,
		log:  o.log.With().Str("component", "connection_manager").Logger(),
	}
}

var (
	sharedOnce sync.Once
	shared     *Manager
)

// Shared returns the process-wide Manager, creating it on first use.
// Arguments after the first call are ignored.
func Shared(src ConfigSource, opts ...Option) *Manager {
	sharedOnce.Do(func() {
		shared = NewManager(src, opts...)
	})
	return shared
}

// Acquire returns a live, validated connection.
//
// The fast path probes the current connection under the read lock. When it
// is missing or dead, Acquire takes the write lock and makes up to
// MaxRetries attempts to open a new one, waiting RetryDelay*attempt between
// attempts. A schema that fails validation is not retried.
func (m *Manager) Acquire(ctx context.Context) (*Conn, error) {
	if err := callerDone(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	m.mu.RLock()
	if conn := m.conn; conn != nil && !conn.Closed() && m.isValid(ctx, conn) {
		m.mu.RUnlock()
		metrics.AcquireLatency.WithLabelValues("fast").Observe(time.Since(start).Seconds())
		return conn, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.acquireLocked(ctx)
	metrics.AcquireLatency.WithLabelValues("slow").Observe(time.Since(start).Seconds())
	return conn, err
}

func (m *Manager) acquireLocked(ctx context.Context) (*Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		// A caller that gave up while waiting must not discard the shared handle.
		if err := callerDone(ctx); err != nil {
			return nil, err
		}
		// Another goroutine may have reconnected while we waited for the lock.
		if m.conn != nil && !m.conn.Closed() && m.isValid(ctx, m.conn) {
			return m.conn, nil
		}
		m.discardLocked()

		conn, err := m.connect(ctx)
		if err == nil {
			m.conn = conn
			return conn, nil
		}
		if errs.IsSchemaInvalid(err) || errs.IsValidationFailed(err) {
			return nil, err
		}
		lastErr = err

		m.log.WarnWith("connection attempt failed", err, map[string]any{
			"attempt":      attempt,
			"max_attempts": MaxRetries,
			"target":       m.cfg.String(),
		})

		if attempt < MaxRetries {
			delay := m.opts.retryDelay * time.Duration(attempt)
			if err := m.opts.sleep(ctx, delay); err != nil {
				return nil, errs.Wrap(errs.ErrKindTimeout, "conexión cancelada durante el reintento", lastErr).
					WithOp("acquire connection")
			}
		}
	}

	m.log.ErrorWith("could not establish connection", lastErr, map[string]any{
		"attempts": MaxRetries,
		"target":   m.cfg.String(),
	})
	return nil, errs.Wrap(errs.ErrKindConnectionFailed,
		fmt.Sprintf("error al establecer conexión con la base de datos después de %d intentos", MaxRetries),
		lastErr).WithOp("acquire connection")
}

// connect opens, validates and returns a new connection. The connection is
// closed on any failure, so a handle that failed validation is never published.
func (m *Manager) connect(ctx context.Context) (*Conn, error) {
	cfg := m.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := m.opts.opener(ctx, cfg)
	if err != nil {
		if errs.IsValidationFailed(err) {
			return nil, err
		}
		m.failures.Add(1)
		de := Inspect(err)
		t := Classify(de)
		metrics.ConnectAttempts.WithLabelValues("failure").Inc()
		metrics.ConnectFailures.WithLabelValues(t.String()).Inc()
		return nil, errs.Wrap(kindFor(t), t.Title(), err).WithSQLState(de.SQLState)
	}
	m.opens.Add(1)
	metrics.ConnectAttempts.WithLabelValues("success").Inc()

	m.validations.Add(1)
	if err := validateSchema(ctx, conn, m.opts.schema); err != nil {
		_ = conn.Close()
		metrics.SchemaValidationFailures.Inc()
		m.log.ErrorWith("schema validation failed", err, map[string]any{"conn_id": conn.ID.String()})
		return nil, err
	}
	runIntegrityChecks(ctx, conn, m.opts.checks, m.log)

	m.log.InfoWith("connection established", map[string]any{
		"conn_id": conn.ID.String(),
		"driver":  conn.Dialect.Name(),
		"target":  cfg.String(),
	})
	return conn, nil
}

// callerDone reports a cancelled or expired caller context as Timeout.
func callerDone(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "la solicitud de conexión fue cancelada", err).
			WithOp("acquire connection")
	}
	return nil
}

// isValid runs the liveness probe. Any failure, including a panic from the
// driver, means the connection is not usable. The probe ignores the caller's
// cancellation so one abandoned request cannot condemn a shared handle;
// Probe bounds it with ValidationQueryTimeout.
func (m *Manager) isValid(ctx context.Context, conn *Conn) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WarnWith("liveness probe panicked", nil, map[string]any{"panic": fmt.Sprint(r)})
			ok = false
		}
	}()
	if err := conn.Probe(context.WithoutCancel(ctx)); err != nil {
		m.log.DebugWith("liveness probe failed", map[string]any{
			"conn_id": conn.ID.String(),
			"error":   err.Error(),
		})
		return false
	}
	return true
}

func (m *Manager) discardLocked() error {
	if m.conn == nil {
		return nil
	}
	conn := m.conn
	m.conn = nil
	if err := conn.Close(); err != nil {
		m.log.WarnWith("error closing connection", err, map[string]any{"conn_id": conn.ID.String()})
		return errs.Wrap(errs.ErrKindDatabase, "error al cerrar la conexión con la base de datos", err).
			WithOp("close connection")
	}
	return nil
}

// RefreshConfiguration re-reads the settings and drops the live connection.
// The next Acquire connects with the new settings.
func (m *Manager) RefreshConfiguration() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = m.src.Connection()
	_ = m.discardLocked()
	m.log.InfoWith("configuration refreshed", map[string]any{"target": m.cfg.String()})
}

// Close releases the live connection. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discardLocked()
}

// IsConnected reports whether a live connection exists and answers the probe.
func (m *Manager) IsConnected(ctx context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil && !m.conn.Closed() && m.isValid(ctx, m.conn)
}

// Config returns the settings the next connection will use.
func (m *Manager) Config() config.ConnectionConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Info summarizes the settings and connection state, without the password.
func (m *Manager) Info(ctx context.Context) string {
	connected := "no"
	if m.IsConnected(ctx) {
		connected = "sí"
	}
	return fmt.Sprintf("%s\nConectado: %s", m.Config().Info(), connected)
}

// Stats returns the lifetime counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Opens:             m.opens.Load(),
		SchemaValidations: m.validations.Load(),
		FailedAttempts:    m.failures.Load(),
	}
}

// TestConnection opens an independent connection with candidate, probes it
// and closes it. The live connection and the lock are never touched.
func (m *Manager) TestConnection(ctx context.Context, candidate config.ConnectionConfig) TestResult {
	if err := candidate.Validate(); err != nil {
		return Failed(ErrorTypeConnection, candidate, err.Error())
	}

	conn, err := m.opts.opener(ctx, candidate)
	if err != nil {
		return m.failedTest(candidate, err)
	}
	defer conn.Close()

	if err := conn.Probe(ctx); err != nil {
		return m.failedTest(candidate, err)
	}

	m.log.InfoWith("connection test succeeded", map[string]any{"target": candidate.String()})
	return Succeeded(candidate)
}

func (m *Manager) failedTest(candidate config.ConnectionConfig, err error) TestResult {
	if errs.IsValidationFailed(err) {
		return Failed(ErrorTypeConnection, candidate, err.Error())
	}
	de := Inspect(err)
	t := Classify(de)
	m.log.WarnWith("connection test failed", err, map[string]any{
		"target":     candidate.String(),
		"error_type": t.String(),
	})
	return Failed(t, candidate, de.Message)
}
