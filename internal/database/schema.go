package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilombo/crm/internal/errs"
	"github.com/kilombo/crm/internal/logger"
	"github.com/kilombo/crm/internal/metrics"
)

// TableSpec names a table and the columns it must have.
type TableSpec struct {
	Name    string
	Columns []string
}

// RequiredSchema is the minimum CRM schema checked on every (re)connect.
func RequiredSchema() []TableSpec {
	return []TableSpec{
		{Name: "clientes", Columns: []string{"id", "nombre", "apellido", "email", "telefono"}},
		{Name: "pedidos", Columns: []string{"id", "id_cliente", "fecha", "total"}},
		{Name: "detalles_pedido", Columns: []string{"id", "id_pedido", "tipo_producto", "cantidad", "subtotal", "ganancia_bruta"}},
	}
}

// IntegrityCheck is a data quality query returning a single count.
// A positive count is reported as a warning.
type IntegrityCheck struct {
	Name    string
	Query   string
	Message string
}

// DefaultIntegrityChecks returns the referential integrity and consistency checks.
func DefaultIntegrityChecks() []IntegrityCheck {
	return []IntegrityCheck{
		{
			Name:    "orphan_orders",
			Query:   "SELECT COUNT(*) FROM pedidos p LEFT JOIN clientes c ON p.id_cliente = c.id WHERE c.id IS NULL",
			Message: "pedidos huérfanos (sin cliente asociado)",
		},
		{
			Name:    "orphan_order_lines",
			Query:   "SELECT COUNT(*) FROM detalles_pedido d LEFT JOIN pedidos p ON d.id_pedido = p.id WHERE p.id IS NULL",
			Message: "detalles huérfanos (sin pedido asociado)",
		},
		{
			Name:    "blank_customer_names",
			Query:   "SELECT COUNT(*) FROM clientes WHERE nombre IS NULL OR TRIM(nombre) = ''",
			Message: "clientes con nombre inválido",
		},
		{
			Name:    "negative_order_totals",
			Query:   "SELECT COUNT(*) FROM pedidos WHERE total < 0",
			Message: "pedidos con total negativo",
		},
	}
}

// validateSchema asserts that every required table has every required column.
func validateSchema(ctx context.Context, conn *Conn, tables []TableSpec) error {
	ctx, cancel := context.WithTimeout(ctx, ValidationQueryTimeout)
	defer cancel()

	query := conn.Rebind(conn.Dialect.ColumnsQuery())
	for _, table := range tables {
		var columns []string
		if err := conn.SelectContext(ctx, &columns, query, table.Name); err != nil {
			return errs.Wrap(errs.ErrKindSchemaInvalid,
				fmt.Sprintf("no se pudo leer la estructura de la tabla %s", table.Name), err).WithOp("validate schema")
		}
		if len(columns) == 0 {
			return errs.Newf(errs.ErrKindSchemaInvalid,
				"la base de datos no tiene el esquema correcto: falta la tabla %s", table.Name).WithOp("validate schema")
		}

		present := make(map[string]struct{}, len(columns))
		for _, c := range columns {
			present[strings.ToLower(c)] = struct{}{}
		}
		var missing []string
		for _, c := range table.Columns {
			if _, ok := present[strings.ToLower(c)]; !ok {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			return errs.Newf(errs.ErrKindSchemaInvalid,
				"la base de datos no tiene el esquema correcto: faltan columnas en %s: %s",
				table.Name, strings.Join(missing, ", ")).WithOp("validate schema")
		}
	}
	return nil
}

// runIntegrityChecks logs findings as warnings. Nothing here is fatal:
// a check that cannot run is logged and skipped.
func runIntegrityChecks(ctx context.Context, conn *Conn, checks []IntegrityCheck, log *logger.Logger) {
	for _, check := range checks {
		qctx, cancel := context.WithTimeout(ctx, ValidationQueryTimeout)
		var count int64
		err := conn.GetContext(qctx, &count, check.Query)
		cancel()

		if err != nil {
			log.WarnWith("integrity check could not run", err, map[string]any{"check": check.Name})
			continue
		}
		if count > 0 {
			metrics.IntegrityWarnings.WithLabelValues(check.Name).Add(float64(count))
			log.WarnWith(fmt.Sprintf("encontrados %d %s", count, check.Message), nil, map[string]any{
				"check": check.Name,
				"count": count,
			})
		}
	}
}
