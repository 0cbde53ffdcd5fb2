package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kilombo/crm/internal/domain"
)

const orderLineColumns = `id, id_pedido, tipo_producto, COALESCE(descripcion, '') AS descripcion, cantidad,
	costo_unitario, precio_unitario, subtotal, ganancia_bruta`

// OrderLineRepository persists domain.OrderLine in detalles_pedido.
type OrderLineRepository struct {
	db     Acquirer
	policy *Policy
}

func NewOrderLineRepository(db Acquirer, policy *Policy) *OrderLineRepository {
	return &OrderLineRepository{db: db, policy: policy}
}

// Save computes subtotal and gross profit, inserts l and sets its ID.
func (r *OrderLineRepository) Save(ctx context.Context, l *domain.OrderLine) error {
	const op = "save order line"
	if err := r.policy.Validate(op, l); err != nil {
		return err
	}
	l.Compute()

	id, err := ExecuteWithIntegrity(ctx, r.policy, op, "detalle de pedido", func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return insert(ctx, conn, `
			INSERT INTO detalles_pedido
				(id_pedido, tipo_producto, descripcion, cantidad, costo_unitario, precio_unitario, subtotal, ganancia_bruta)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.OrderID, l.ProductType, l.Description, l.Quantity, l.UnitCost, l.UnitPrice, l.Subtotal, l.GrossProfit)
	})
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (r *OrderLineRepository) FindByID(ctx context.Context, id int64) (*domain.OrderLine, error) {
	const op = "find order line"
	if id <= 0 {
		return nil, r.policy.record(op, notFound(op, "detalle de pedido", id))
	}

	return Execute(ctx, r.policy, op, func(ctx context.Context) (*domain.OrderLine, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		var l domain.OrderLine
		err = conn.GetContext(ctx, &l, conn.Rebind(`SELECT `+orderLineColumns+` FROM detalles_pedido WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(op, "detalle de pedido", id)
		}
		if err != nil {
			return nil, err
		}
		return &l, nil
	})
}

func (r *OrderLineRepository) FindAll(ctx context.Context) ([]domain.OrderLine, error) {
	return Execute(ctx, r.policy, "find order lines", func(ctx context.Context) ([]domain.OrderLine, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		lines := []domain.OrderLine{}
		err = conn.SelectContext(ctx, &lines, `SELECT `+orderLineColumns+` FROM detalles_pedido ORDER BY id`)
		return lines, err
	})
}

// FindByOrder returns the lines of an order, largest subtotal first.
func (r *OrderLineRepository) FindByOrder(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	if orderID <= 0 {
		return []domain.OrderLine{}, nil
	}
	return Execute(ctx, r.policy, "find order lines by order", func(ctx context.Context) ([]domain.OrderLine, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		lines := []domain.OrderLine{}
		err = conn.SelectContext(ctx, &lines,
			conn.Rebind(`SELECT `+orderLineColumns+` FROM detalles_pedido WHERE id_pedido = ? ORDER BY subtotal DESC, id`),
			orderID)
		return lines, err
	})
}

// PrincipalLine returns the line with the largest subtotal of an order.
func (r *OrderLineRepository) PrincipalLine(ctx context.Context, orderID int64) (*domain.OrderLine, error) {
	const op = "find principal order line"
	if orderID <= 0 {
		return nil, r.policy.record(op, notFound(op, "pedido", orderID))
	}

	return Execute(ctx, r.policy, op, func(ctx context.Context) (*domain.OrderLine, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		var l domain.OrderLine
		err = conn.GetContext(ctx, &l, conn.Rebind(`
			SELECT `+orderLineColumns+`
			FROM detalles_pedido
			WHERE id_pedido = ?
			ORDER BY subtotal DESC, id
			LIMIT 1`), orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(op, "pedido sin detalles", orderID)
		}
		if err != nil {
			return nil, err
		}
		return &l, nil
	})
}

func (r *OrderLineRepository) Update(ctx context.Context, l domain.OrderLine) error {
	const op = "update order line"
	if err := r.policy.Validate(op, l); err != nil {
		return err
	}
	if _, err := r.FindByID(ctx, l.ID); err != nil {
		return err
	}
	l.Compute()

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn, `
			UPDATE detalles_pedido
			SET id_pedido = ?, tipo_producto = ?, descripcion = ?, cantidad = ?,
			    costo_unitario = ?, precio_unitario = ?, subtotal = ?, ganancia_bruta = ?
			WHERE id = ?`,
			l.OrderID, l.ProductType, l.Description, l.Quantity,
			l.UnitCost, l.UnitPrice, l.Subtotal, l.GrossProfit, l.ID)
	})
	return concurrentChange(err, op, "detalle de pedido", l.ID)
}

func (r *OrderLineRepository) Delete(ctx context.Context, id int64) error {
	const op = "delete order line"
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn, `DELETE FROM detalles_pedido WHERE id = ?`, id)
	})
	return concurrentChange(err, op, "detalle de pedido", id)
}
