package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

var requestNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func baseRequest() CreateInventoryLineRequest {
	return CreateInventoryLineRequest{
		Purchasable: purchasable.Reference{Kind: purchasable.KindEvent, ID: "EV1"},
		Name:        "General Admission",
		Quantity:    100,
		UnitPrice:   decimal.RequireFromString("25.00"),
		Currency:    "usd",
	}
}

func TestCreateInventoryLineRequestToEntity(t *testing.T) {
	req := baseRequest()
	req.MaxPerOrder = int64Ptr(4)
	req.SellingStart = "2026-05-01 09:00:00"
	req.SellingEnd = "2026-06-01 09:00:00"

	l, err := req.ToEntity(time.UTC, requestNow)
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "USD", l.Currency)
	assert.Equal(t, int64(1), l.MinPerOrder)
	assert.Equal(t, int64(100), l.AvailableQty)
	require.NotNil(t, l.SellingStart)
	assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), *l.SellingStart)
	assert.False(t, l.MinimumPrice.Valid)
	assert.True(t, l.OnSale(requestNow))
}

func TestCreateInventoryLineRequestPayWhatYouWant(t *testing.T) {
	req := baseRequest()
	req.UnitPrice = decimal.Zero
	req.PayWhatYouWant = true
	req.MinimumPrice = decimalPtr("5.00")

	l, err := req.ToEntity(time.UTC, requestNow)
	require.NoError(t, err)

	require.True(t, l.MinimumPrice.Valid)
	assert.True(t, decimal.RequireFromString("5.00").Equal(l.MinimumPrice.Decimal))
}

func TestCreateInventoryLineRequestRejections(t *testing.T) {
	type testCase struct {
		name   string
		mutate func(r *CreateInventoryLineRequest)
	}

	testCases := []testCase{
		{
			name:   "negative price",
			mutate: func(r *CreateInventoryLineRequest) { r.UnitPrice = decimal.RequireFromString("-1") },
		},
		{
			name:   "sub cent price",
			mutate: func(r *CreateInventoryLineRequest) { r.UnitPrice = decimal.RequireFromString("1.005") },
		},
		{
			name: "fractional yen",
			mutate: func(r *CreateInventoryLineRequest) {
				r.Currency = "JPY"
				r.UnitPrice = decimal.RequireFromString("100.5")
			},
		},
		{
			name: "max below min",
			mutate: func(r *CreateInventoryLineRequest) {
				r.MinPerOrder = 3
				r.MaxPerOrder = int64Ptr(2)
			},
		},
		{
			name:   "pay what you want without floor",
			mutate: func(r *CreateInventoryLineRequest) { r.PayWhatYouWant = true },
		},
		{
			name:   "floor on a fixed price line",
			mutate: func(r *CreateInventoryLineRequest) { r.MinimumPrice = decimalPtr("1.00") },
		},
		{
			name: "window ends before it starts",
			mutate: func(r *CreateInventoryLineRequest) {
				r.SellingStart = "2026-06-01 09:00:00"
				r.SellingEnd = "2026-05-01 09:00:00"
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)

			_, err := req.ToEntity(time.UTC, requestNow)
			require.Error(t, err)
			assert.True(t, errors.HasStatus(err, status.BAD_REQUEST))
			assert.NotEmpty(t, errors.Destruct(err).List())
		})
	}
}
