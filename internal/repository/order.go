package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kilombo/crm/internal/domain"
)

const orderColumns = `id, id_cliente, fecha, total, estado`

// DefaultTopCustomers is the size of the gross profit ranking when no limit is given.
const DefaultTopCustomers = 5

// OrderRepository persists domain.Order in pedidos.
type OrderRepository struct {
	db     Acquirer
	policy *Policy
}

func NewOrderRepository(db Acquirer, policy *Policy) *OrderRepository {
	return &OrderRepository{db: db, policy: policy}
}

// Save inserts o and sets its ID. An unknown customer is an IntegrityViolation.
func (r *OrderRepository) Save(ctx context.Context, o *domain.Order) error {
	const op = "save order"
	if err := r.policy.Validate(op, o); err != nil {
		return err
	}
	o.Status = o.StatusOrDefault()

	id, err := ExecuteWithIntegrity(ctx, r.policy, op, "pedido", func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return insert(ctx, conn,
			`INSERT INTO pedidos (id_cliente, fecha, total, estado) VALUES (?, ?, ?, ?)`,
			o.CustomerID, o.Date, o.Total, o.Status)
	})
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	const op = "find order"
	if id <= 0 {
		return nil, r.policy.record(op, notFound(op, "pedido", id))
	}

	return Execute(ctx, r.policy, op, func(ctx context.Context) (*domain.Order, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		var o domain.Order
		err = conn.GetContext(ctx, &o, conn.Rebind(`SELECT `+orderColumns+` FROM pedidos WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(op, "pedido", id)
		}
		if err != nil {
			return nil, err
		}
		return &o, nil
	})
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]domain.Order, error) {
	return Execute(ctx, r.policy, "find orders", func(ctx context.Context) ([]domain.Order, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		orders := []domain.Order{}
		err = conn.SelectContext(ctx, &orders, `SELECT `+orderColumns+` FROM pedidos ORDER BY fecha DESC, id DESC`)
		return orders, err
	})
}

// FindByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if customerID <= 0 {
		return []domain.Order{}, nil
	}
	return Execute(ctx, r.policy, "find orders by customer", func(ctx context.Context) ([]domain.Order, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		orders := []domain.Order{}
		err = conn.SelectContext(ctx, &orders,
			conn.Rebind(`SELECT `+orderColumns+` FROM pedidos WHERE id_cliente = ? ORDER BY fecha DESC, id DESC`),
			customerID)
		return orders, err
	})
}

func (r *OrderRepository) Update(ctx context.Context, o domain.Order) error {
	const op = "update order"
	if err := r.policy.Validate(op, o); err != nil {
		return err
	}
	if _, err := r.FindByID(ctx, o.ID); err != nil {
		return err
	}

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn,
			`UPDATE pedidos SET id_cliente = ?, fecha = ?, total = ?, estado = ? WHERE id = ?`,
			o.CustomerID, o.Date, o.Total, o.StatusOrDefault(), o.ID)
	})
	return concurrentChange(err, op, "pedido", o.ID)
}

// Delete removes an order and, through the foreign key, its lines.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	const op = "delete order"
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn, `DELETE FROM pedidos WHERE id = ?`, id)
	})
	return concurrentChange(err, op, "pedido", id)
}

func (r *OrderRepository) CountByCustomer(ctx context.Context, customerID int64) (int64, error) {
	if customerID <= 0 {
		return 0, nil
	}
	return Execute(ctx, r.policy, "count orders by customer", func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		var n int64
		err = conn.GetContext(ctx, &n, conn.Rebind(`SELECT COUNT(*) FROM pedidos WHERE id_cliente = ?`), customerID)
		return n, err
	})
}

func (r *OrderRepository) SumTotalByCustomer(ctx context.Context, customerID int64) (float64, error) {
	if customerID <= 0 {
		return 0, nil
	}
	return Execute(ctx, r.policy, "sum orders by customer", func(ctx context.Context) (float64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		var total float64
		err = conn.GetContext(ctx, &total,
			conn.Rebind(`SELECT COALESCE(SUM(total), 0) FROM pedidos WHERE id_cliente = ?`), customerID)
		return total, err
	})
}

// TopCustomersByGrossProfit ranks customers by the gross profit of all their
// order lines. limit <= 0 means DefaultTopCustomers.
func (r *OrderRepository) TopCustomersByGrossProfit(ctx context.Context, limit int) ([]domain.CustomerProfit, error) {
	if limit <= 0 {
		limit = DefaultTopCustomers
	}
	return Execute(ctx, r.policy, "top customers by gross profit", func(ctx context.Context) ([]domain.CustomerProfit, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		var rows []struct {
			ID          int64   `db:"id"`
			FirstName   string  `db:"nombre"`
			LastName    string  `db:"apellido"`
			GrossProfit float64 `db:"ganancia"`
		}
		err = conn.SelectContext(ctx, &rows, conn.Rebind(`
			SELECT c.id, c.nombre, c.apellido, COALESCE(SUM(d.ganancia_bruta), 0) AS ganancia
			FROM clientes c
			JOIN pedidos p ON p.id_cliente = c.id
			JOIN detalles_pedido d ON d.id_pedido = p.id
			GROUP BY c.id, c.nombre, c.apellido
			ORDER BY ganancia DESC, c.id
			LIMIT ?`), limit)
		if err != nil {
			return nil, err
		}

		out := make([]domain.CustomerProfit, 0, len(rows))
		for _, row := range rows {
			out = append(out, domain.CustomerProfit{
				CustomerID:  row.ID,
				Name:        domain.Customer{FirstName: row.FirstName, LastName: row.LastName}.FullName(),
				GrossProfit: row.GrossProfit,
			})
		}
		return out, nil
	})
}
