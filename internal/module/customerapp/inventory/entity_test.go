package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOnSale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	testCases := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  bool
	}{
		{name: "open window", want: true},
		{name: "inside", start: &before, end: &after, want: true},
		{name: "not started", start: &after, want: false},
		{name: "ended", end: &before, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := InventoryLine{SellingStart: tc.start, SellingEnd: tc.end}
			assert.Equal(t, tc.want, l.OnSale(now))
		})
	}
}

func TestEffectivePrice(t *testing.T) {
	custom := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	listed := InventoryLine{UnitPrice: decimal.RequireFromString("25.00")}
	pwyw := InventoryLine{
		UnitPrice:      decimal.Zero,
		PayWhatYouWant: true,
		MinimumPrice:   decimal.NewNullDecimal(decimal.RequireFromString("5.00")),
	}

	testCases := []struct {
		name   string
		line   InventoryLine
		custom *decimal.Decimal
		want   string
	}{
		{name: "list price ignores custom price", line: listed, custom: custom("1.00"), want: "25"},
		{name: "custom price below floor is raised", line: pwyw, custom: custom("2.00"), want: "5"},
		{name: "custom price above floor is kept", line: pwyw, custom: custom("12.50"), want: "12.5"},
		{name: "missing custom price uses floor", line: pwyw, want: "5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.line.EffectivePrice(tc.custom)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}
