package repository

import (
	"context"
	"fmt"

	"github.com/kilombo/crm/internal/database"
	"github.com/kilombo/crm/internal/errs"
)

// insert runs an INSERT and returns the generated id, through RETURNING on
// engines without LastInsertId.
func insert(ctx context.Context, conn *database.Conn, query string, args ...any) (int64, error) {
	query = conn.Rebind(query)
	if conn.Dialect.SupportsReturning() {
		var id int64
		err := conn.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// exec runs a mutating statement and returns the affected row count.
func exec(ctx context.Context, conn *database.Conn, query string, args ...any) (int64, error) {
	res, err := conn.ExecContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// concurrentChange rewrites a zero-row effect seen after a successful
// existence check: the row vanished between the two statements.
func concurrentChange(err error, op, entity string, id int64) error {
	if !errs.IsNotFoundOnMutate(err) {
		return err
	}
	return errs.Wrap(errs.ErrKindNotFoundOnMutate,
		fmt.Sprintf("%s %d fue modificado o eliminado concurrentemente", entity, id), err).WithOp(op)
}

func notFound(op, entity string, id int64) *errs.Error {
	return errs.Newf(errs.ErrKindNotFound, "%s %d no encontrado", entity, id).WithOp(op)
}
