package domain

import "strings"

// OrderLine is a row of detalles_pedido.
type OrderLine struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"id_pedido" json:"id_pedido"`
	ProductType string  `db:"tipo_producto" json:"tipo_producto"`
	Description string  `db:"descripcion" json:"descripcion"`
	Quantity    int     `db:"cantidad" json:"cantidad"`
	UnitCost    float64 `db:"costo_unitario" json:"costo_unitario"`
	UnitPrice   float64 `db:"precio_unitario" json:"precio_unitario"`
	Subtotal    float64 `db:"subtotal" json:"subtotal"`
	GrossProfit float64 `db:"ganancia_bruta" json:"ganancia_bruta"`
}

// Compute fills Subtotal (quantity * price) and GrossProfit
// (quantity * (price - cost)), rounded to cents.
func (l *OrderLine) Compute() {
	q := float64(l.Quantity)
	l.Subtotal = roundCents(q * l.UnitPrice)
	l.GrossProfit = roundCents(q * (l.UnitPrice - l.UnitCost))
}

func (l OrderLine) Validate() error {
	var missing []string
	if l.OrderID <= 0 {
		missing = append(missing, "id_pedido")
	}
	if strings.TrimSpace(l.ProductType) == "" {
		missing = append(missing, "tipo_producto")
	}
	if l.Quantity <= 0 {
		missing = append(missing, "cantidad")
	}
	return missingFields("detalle de pedido", missing)
}
