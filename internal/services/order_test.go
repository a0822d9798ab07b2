package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/yorusito/shop-backend/internal/models"
)

func TestOrderTotal_SumsLineSubtotals(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: decimal.RequireFromString("19.90"), Quantity: 2},
		{UnitPrice: decimal.RequireFromString("5.50"), Quantity: 3},
	}

	total := orderTotal(items)
	assert.True(t, total.Equal(decimal.RequireFromString("56.30")), "got %s", total)
}

func TestOrderTotal_EmptyOrderIsZero(t *testing.T) {
	assert.True(t, orderTotal(nil).IsZero())
}

func TestOrderTotal_NoFloatDrift(t *testing.T) {
	// 0.1 * 3 would drift with float64 money.
	items := []models.OrderItem{
		{UnitPrice: decimal.RequireFromString("0.10"), Quantity: 3},
	}
	assert.True(t, orderTotal(items).Equal(decimal.RequireFromString("0.30")))
}

func TestValidOrderStatus(t *testing.T) {
	valid := []models.OrderStatus{
		models.OrderPending, models.OrderConfirmed, models.OrderPaid,
		models.OrderPreparing, models.OrderShipped, models.OrderDelivered,
		models.OrderCancelled,
	}
	for _, s := range valid {
		assert.True(t, models.ValidOrderStatus(s), "%s should be valid", s)
	}

	assert.False(t, models.ValidOrderStatus("REFUNDED"))
	assert.False(t, models.ValidOrderStatus("paid"), "statuses are case sensitive")
	assert.False(t, models.ValidOrderStatus(""))
}
