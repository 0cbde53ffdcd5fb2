package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kilombo/crm/internal/domain"
)

const customerColumns = `id, nombre, apellido, email, COALESCE(telefono, '') AS telefono`

// CustomerRepository persists domain.Customer in clientes.
type CustomerRepository struct {
	db     Acquirer
	policy *Policy
}

func NewCustomerRepository(db Acquirer, policy *Policy) *CustomerRepository {
	return &CustomerRepository{db: db, policy: policy}
}

// Save inserts c and sets its ID. A duplicate email is an IntegrityViolation.
func (r *CustomerRepository) Save(ctx context.Context, c *domain.Customer) error {
	const op = "save customer"
	if err := r.policy.Validate(op, c); err != nil {
		return err
	}

	id, err := ExecuteWithIntegrity(ctx, r.policy, op, "cliente", func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return insert(ctx, conn,
			`INSERT INTO clientes (nombre, apellido, email, telefono) VALUES (?, ?, ?, ?)`,
			c.FirstName, c.LastName, c.Email, c.Phone)
	})
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const op = "find customer"
	if id <= 0 {
		return nil, r.policy.record(op, notFound(op, "cliente", id))
	}

	return Execute(ctx, r.policy, op, func(ctx context.Context) (*domain.Customer, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		var c domain.Customer
		err = conn.GetContext(ctx, &c, conn.Rebind(`SELECT `+customerColumns+` FROM clientes WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(op, "cliente", id)
		}
		if err != nil {
			return nil, err
		}
		return &c, nil
	})
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]domain.Customer, error) {
	return Execute(ctx, r.policy, "find customers", func(ctx context.Context) ([]domain.Customer, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		customers := []domain.Customer{}
		err = conn.SelectContext(ctx, &customers, `SELECT `+customerColumns+` FROM clientes ORDER BY id`)
		return customers, err
	})
}

// Update overwrites the stored customer. The customer must exist; if it
// vanishes before the UPDATE runs the error is NotFoundOnMutate.
func (r *CustomerRepository) Update(ctx context.Context, c domain.Customer) error {
	const op = "update customer"
	if err := r.policy.Validate(op, c); err != nil {
		return err
	}
	if _, err := r.FindByID(ctx, c.ID); err != nil {
		return err
	}

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn,
			`UPDATE clientes SET nombre = ?, apellido = ?, email = ?, telefono = ? WHERE id = ?`,
			c.FirstName, c.LastName, c.Email, c.Phone, c.ID)
	})
	return concurrentChange(err, op, "cliente", c.ID)
}

// Delete removes a customer. Customers with orders cannot be deleted.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	const op = "delete customer"
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}

	err := ExecuteWithRowValidation(ctx, r.policy, op, 1, func(ctx context.Context) (int64, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		return exec(ctx, conn, `DELETE FROM clientes WHERE id = ?`, id)
	})
	return concurrentChange(err, op, "cliente", id)
}

// ExistsByEmail reports whether any customer uses email.
func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	return Execute(ctx, r.policy, "exists customer by email", func(ctx context.Context) (bool, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return false, err
		}
		var n int64
		err = conn.GetContext(ctx, &n, conn.Rebind(`SELECT COUNT(*) FROM clientes WHERE email = ?`), email)
		return n > 0, err
	})
}

// ExistsByEmailExcluding reports whether a customer other than id uses email.
// Used when editing, so a customer keeping its own email is not a conflict.
func (r *CustomerRepository) ExistsByEmailExcluding(ctx context.Context, email string, id int64) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	return Execute(ctx, r.policy, "exists customer by email excluding id", func(ctx context.Context) (bool, error) {
		conn, err := r.db.Acquire(ctx)
		if err != nil {
			return false, err
		}
		var n int64
		err = conn.GetContext(ctx, &n,
			conn.Rebind(`SELECT COUNT(*) FROM clientes WHERE email = ? AND id <> ?`), email, id)
		return n > 0, err
	})
}
