package purchase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPurchaseExpandsUnits(t *testing.T) {
	gold := line("gold", "50.00", 10)
	silver := line("silver", "20.00", 10)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	intent := Intent{
		Purchasable: concert,
		Buyer:       member,
		Currency:    "USD",
		Lines: []IntentLine{
			{Line: gold, UnitPrice: gold.UnitPrice, Quantity: 2},
			{Line: silver, UnitPrice: silver.UnitPrice, Quantity: 1},
		},
		Total: decimal.RequireFromString("120.00"),
	}

	p := NewPurchase(intent, "TP1", now)

	assert.Equal(t, StatePending, p.State)
	require.Len(t, p.Items, 3)

	sum := decimal.Zero
	ids := make(map[string]bool)
	for _, item := range p.Items {
		assert.Equal(t, "TP1", item.PurchaseID)
		assert.Equal(t, StatePending, item.State)
		assert.Equal(t, "USD", item.Currency)
		sum = sum.Add(item.Price)
		ids[item.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.True(t, sum.Equal(p.TotalAmount))
	assert.True(t, decimal.RequireFromString("120").Equal(p.TotalAmount))
	assert.Equal(t, &accountID, p.BuyerID)
}

func TestNewPurchaseFreeIsPaid(t *testing.T) {
	free := line("free", "0", 10)

	p := NewPurchase(Intent{
		Purchasable: concert,
		Buyer:       guest,
		Currency:    "USD",
		Lines:       []IntentLine{{Line: free, UnitPrice: decimal.Zero, Quantity: 2}},
		Total:       decimal.Zero,
	}, "TP2", time.Now())

	assert.Equal(t, StatePaid, p.State)
	assert.True(t, p.IsGuest())
	for _, item := range p.Items {
		assert.Equal(t, StatePaid, item.State)
	}
}

func TestQuantitiesByLine(t *testing.T) {
	items := []PurchasedItem{
		{InventoryLineID: "b"},
		{InventoryLineID: "a"},
		{InventoryLineID: "b"},
		{InventoryLineID: "c"},
		{InventoryLineID: "b"},
	}

	assert.Equal(t, []LineQuantity{
		{InventoryLineID: "a", Quantity: 1},
		{InventoryLineID: "b", Quantity: 3},
		{InventoryLineID: "c", Quantity: 1},
	}, QuantitiesByLine(items))
}
