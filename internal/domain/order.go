package domain

import (
	"math"
	"strings"
	"time"
)

// Order states.
const (
	StatusPending   = "PENDIENTE"
	StatusShipped   = "ENVIADO"
	StatusDelivered = "ENTREGADO"
	StatusCancelled = "CANCELADO"
)

// Order is a row of pedidos.
type Order struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"id_cliente" json:"id_cliente"`
	Date       time.Time `db:"fecha" json:"fecha"`
	Total      float64   `db:"total" json:"total"`
	Status     string    `db:"estado" json:"estado"`
}

// NewOrder returns a pending order dated today.
func NewOrder(customerID int64, total float64) Order {
	return Order{
		CustomerID: customerID,
		Date:       today(),
		Total:      total,
		Status:     StatusPending,
	}
}

func (o Order) Validate() error {
	var missing []string
	if o.CustomerID <= 0 {
		missing = append(missing, "id_cliente")
	}
	if o.Date.IsZero() {
		missing = append(missing, "fecha")
	}
	return missingFields("pedido", missing)
}

// StatusOrDefault returns the state to persist, defaulting to pending.
func (o Order) StatusOrDefault() string {
	if strings.TrimSpace(o.Status) == "" {
		return StatusPending
	}
	return o.Status
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// roundCents rounds money to two decimals.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
