package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		code     string
		expected int64
	}{
		{name: "zero decimal currency is unchanged", amount: "50000", code: "JPY", expected: 50000},
		{name: "zero decimal lower case code", amount: "50000", code: "krw", expected: 50000},
		{name: "usd to cents", amount: "50.00", code: "USD", expected: 5000},
		{name: "eur with cents", amount: "19.99", code: "EUR", expected: 1999},
		{name: "half cent rounds away from zero", amount: "10.005", code: "USD", expected: 1001},
		{name: "sub cent amount rounds to nearest cent", amount: "0.285", code: "USD", expected: 29},
		{name: "idr is a minor unit currency", amount: "150000", code: "IDR", expected: 15000000},
		{name: "zero amount", amount: "0", code: "USD", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToMinorUnits(decimal.RequireFromString(tc.amount), tc.code)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "5.00", Format(decimal.NewFromInt(5), "usd"))
	assert.Equal(t, "50000", Format(decimal.NewFromInt(50000), "JPY"))
}

func TestIsZeroDecimal(t *testing.T) {
	assert.True(t, IsZeroDecimal(" jpy "))
	assert.False(t, IsZeroDecimal("USD"))
	assert.False(t, IsZeroDecimal(""))
}
