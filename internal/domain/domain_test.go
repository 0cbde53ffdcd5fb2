package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilombo/crm/internal/errs"
)

func TestCustomer_Validate(t *testing.T) {
	ok := Customer{FirstName: "Ana", LastName: "Gómez", Email: "ana@example.com"}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, "Ana Gómez", ok.FullName())

	err := Customer{FirstName: " ", Email: "x@y.z"}.Validate()
	require.Error(t, err)
	assert.True(t, errs.IsValidationFailed(err))
	assert.Contains(t, err.Error(), "nombre, apellido")
}

func TestOrder_Validate(t *testing.T) {
	o := NewOrder(3, 120.5)
	assert.NoError(t, o.Validate())
	assert.Equal(t, StatusPending, o.Status)

	err := Order{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_cliente, fecha")
	assert.Equal(t, StatusPending, Order{}.StatusOrDefault())
	assert.Equal(t, StatusShipped, Order{Status: StatusShipped}.StatusOrDefault())
}

func TestOrderLine_Compute(t *testing.T) {
	l := OrderLine{OrderID: 1, ProductType: "remera", Quantity: 3, UnitCost: 4.10, UnitPrice: 10.05}
	l.Compute()

	assert.InDelta(t, 30.15, l.Subtotal, 0.001)
	assert.InDelta(t, 17.85, l.GrossProfit, 0.001)
	assert.NoError(t, l.Validate())
}

func TestOrderLine_Validate(t *testing.T) {
	err := OrderLine{}.Validate()
	require.Error(t, err)
	assert.True(t, errs.IsValidationFailed(err))
	assert.Contains(t, err.Error(), "id_pedido, tipo_producto, cantidad")
}
