package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectAttempts counts connection opening attempts by result (success, failure).
	ConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilombo_db_connect_attempts_total",
			Help: "Total number of database connection attempts",
		},
		[]string{"result"},
	)

	// ConnectFailures counts failed attempts by classified error type
	ConnectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilombo_db_connect_failures_total",
			Help: "Total number of failed connection attempts by error type",
		},
		[]string{"error_type"},
	)

	SchemaValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kilombo_db_schema_validation_failures_total",
			Help: "Total number of schema validations that found missing tables or columns",
		},
	)

	// IntegrityWarnings counts rows reported by the data quality checks
	IntegrityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilombo_db_integrity_warnings_total",
			Help: "Total number of rows flagged by referential integrity and data quality checks",
		},
		[]string{"check"},
	)

	// RepositoryErrors counts classified repository failures
	RepositoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kilombo_repository_errors_total",
			Help: "Total number of repository operation failures by kind",
		},
		[]string{"operation", "kind"},
	)

	// AcquireLatency tracks how long callers wait for a usable connection
	AcquireLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kilombo_db_acquire_duration_seconds",
			Help:    "Time spent acquiring a validated connection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)
