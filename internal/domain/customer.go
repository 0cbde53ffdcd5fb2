// Package domain holds the CRM entities and their presence checks.
package domain

import (
	"strings"

	"github.com/kilombo/crm/internal/errs"
)

// Customer is a row of clientes.
type Customer struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"nombre" json:"nombre"`
	LastName  string `db:"apellido" json:"apellido"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"telefono" json:"telefono"`
}

// FullName is "nombre apellido".
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Customer) Validate() error {
	var missing []string
	if strings.TrimSpace(c.FirstName) == "" {
		missing = append(missing, "nombre")
	}
	if strings.TrimSpace(c.LastName) == "" {
		missing = append(missing, "apellido")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	return missingFields("cliente", missing)
}

// CustomerProfit is one row of the top customers report.
type CustomerProfit struct {
	CustomerID  int64   `json:"id_cliente"`
	Name        string  `json:"nombre"`
	GrossProfit float64 `json:"ganancia_bruta"`
}

func missingFields(entity string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return errs.Newf(errs.ErrKindValidationFailed, "%s inválido, campos obligatorios: %s",
		entity, strings.Join(missing, ", "))
}
