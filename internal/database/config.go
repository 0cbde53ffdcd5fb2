package database

import (
	"context"
	"time"

	"github.com/kilombo/crm/internal/config"
	"github.com/kilombo/crm/internal/logger"
)

// Connection lifecycle limits.
const (
	MaxRetries             = 3
	RetryDelay             = time.Second
	ConnectTimeout         = 5 * time.Second
	ValidationQueryTimeout = 5 * time.Second
)

// ConfigSource supplies the current connection settings. *config.Store implements it.
type ConfigSource interface {
	Connection() config.ConnectionConfig
}

// StaticConfig is a ConfigSource that always returns the same settings.
type StaticConfig config.ConnectionConfig

func (s StaticConfig) Connection() config.ConnectionConfig {
	return config.ConnectionConfig(s)
}

// Sleeper waits d between connection attempts. It returns early with
// ctx.Err() when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	log        *logger.Logger
	opener     Opener
	sleep      Sleeper
	retryDelay time.Duration
	schema     []TableSpec
	checks     []IntegrityCheck
}

func defaultOptions() options {
	return options{
		log:        logger.Nop(),
		opener:     OpenSQL,
		sleep:      sleepContext,
		retryDelay: RetryDelay,
		schema:     RequiredSchema(),
		checks:     DefaultIntegrityChecks(),
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithOpener replaces how raw connections are opened.
func WithOpener(fn Opener) Option {
	return func(o *options) {
		if fn != nil {
			o.opener = fn
		}
	}
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(fn Sleeper) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithRetryDelay sets the base backoff delay. Attempt n waits n*d.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithRequiredSchema replaces the tables and columns checked on connect.
func WithRequiredSchema(tables ...TableSpec) Option {
	return func(o *options) {
		o.schema = tables
	}
}

// WithIntegrityChecks replaces the data quality checks run after schema validation.
func WithIntegrityChecks(checks ...IntegrityCheck) Option {
	return func(o *options) {
		o.checks = checks
	}
}
