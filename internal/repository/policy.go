// Package repository implements the CRM repositories and the error policy
// they share: every failure leaves a repository as a classified *errs.Error.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/errs"
	"github.com/kilombo/crm/internal/logger"
	"github.com/kilombo/crm/internal/metrics"
)

// Acquirer hands out the live connection. *database.Manager implements it.
type Acquirer interface {
	Acquire(ctx context.Context) (*database.Conn, error)
}

// Policy classifies, logs and counts repository failures.
type Policy struct {
	log *logger.Logger
}

// NewPolicy returns a Policy logging to log. A nil log discards output.
func NewPolicy(log *logger.Logger) *Policy {
	if log == nil {
		log = logger.Nop()
	}
	return &Policy{log: log.With().Str("component", "repository").Logger()}
}

// Execute runs fn and classifies any failure:
//
//   - *errs.Error passes through unchanged
//   - sql.ErrNoRows becomes NotFound
//   - context deadline or cancellation becomes Timeout
//   - driver errors become ConnectionFailed when the link is gone, Database otherwise
//   - anything else, including a panic, becomes Unexpected
func Execute[T any](ctx context.Context, p *Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, p, op, "", false, fn)
}

// ExecuteWithIntegrity is Execute plus SQLSTATE triage: class 23 becomes
// IntegrityViolation naming entity, class 42 becomes SyntaxOrAccess.
func ExecuteWithIntegrity[T any](ctx context.Context, p *Policy, op, entity string, fn func(ctx context.Context) (T, error)) (T, error) {
	return run(ctx, p, op, entity, true, fn)
}

// ExecuteWithRowValidation runs a mutating statement. fn returns the number
// of affected rows; fewer than expected is NotFoundOnMutate.
func ExecuteWithRowValidation(ctx context.Context, p *Policy, op string, expected int64, fn func(ctx context.Context) (int64, error)) error {
	_, err := run(ctx, p, op, "", true, func(ctx context.Context) (int64, error) {
		n, err := fn(ctx)
		if err != nil {
			return n, err
		}
		if n < expected {
			return n, errs.Newf(errs.ErrKindNotFoundOnMutate,
				"ninguna fila afectada: se esperaban %d, se obtuvieron %d", expected, n)
		}
		return n, nil
	})
	return err
}

func run[T any](ctx context.Context, p *Policy, op, entity string, integrity bool, fn func(ctx context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = p.record(op, errs.Newf(errs.ErrKindUnexpected, "error inesperado: %v", r).WithOp(op))
		}
	}()

	v, err := fn(ctx)
	if err == nil {
		return v, nil
	}
	var zero T
	return zero, p.record(op, classify(op, entity, integrity, err))
}

// Validate runs v's presence checks, recording a failure under op.
func (p *Policy) Validate(op string, v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return p.record(op, classify(op, "", false, err))
	}
	return nil
}

func classify(op, entity string, integrity bool, err error) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = op
		}
		return e
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, "registro no encontrado", err).WithOp(op)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "la operación excedió el tiempo límite", err).WithOp(op)
	}

	de := database.Inspect(err)
	if integrity {
		switch database.ClassifyState(de.SQLState) {
		case errs.ErrKindIntegrityViolation:
			msg := "violación de integridad"
			if entity != "" {
				msg = fmt.Sprintf("violación de integridad en %s", entity)
			}
			return errs.Wrap(errs.ErrKindIntegrityViolation, msg, err).WithOp(op).WithSQLState(de.SQLState)
		case errs.ErrKindSyntaxOrAccess:
			return errs.Wrap(errs.ErrKindSyntaxOrAccess, "error de sintaxis SQL o acceso denegado", err).
				WithOp(op).WithSQLState(de.SQLState)
		}
	}

	if de.Recognized {
		if de.Connectivity() {
			return errs.Wrap(errs.ErrKindConnectionFailed, "se perdió la conexión con la base de datos", err).
				WithOp(op).WithSQLState(de.SQLState)
		}
		return errs.Wrap(errs.ErrKindDatabase, "error en operación de base de datos", err).
			WithOp(op).WithSQLState(de.SQLState)
	}
	return errs.Wrap(errs.ErrKindUnexpected, "error inesperado", err).WithOp(op)
}

// record logs e at a severity matching its kind and counts it.
func (p *Policy) record(op string, e *errs.Error) *errs.Error {
	metrics.RepositoryErrors.WithLabelValues(op, e.Kind.String()).Inc()

	fields := map[string]any{"op": op, "kind": e.Kind.String()}
	if e.SQLState != "" {
		fields["sql_state"] = e.SQLState
	}

	switch e.Kind {
	case errs.ErrKindNotFound:
		fields["error"] = e.Error()
		p.log.DebugWith("repository lookup miss", fields)
	case errs.ErrKindValidationFailed, errs.ErrKindIntegrityViolation, errs.ErrKindNotFoundOnMutate:
		p.log.WarnWith("repository operation rejected", e, fields)
	default:
		p.log.ErrorWith("repository operation failed", e, fields)
	}
	return e
}
