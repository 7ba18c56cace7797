// Package currency holds the single table of currencies the payment provider
// charges without a minor unit. Checkout line items and refunds both convert
// through ToMinorUnits so the two can never disagree.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimal = map[string]struct{}{
	"BIF": {},
	"CLP": {},
	"DJF": {},
	"GNF": {},
	"JPY": {},
	"KMF": {},
	"KRW": {},
	"MGA": {},
	"PYG": {},
	"RWF": {},
	"UGX": {},
	"VND": {},
	"VUV": {},
	"XAF": {},
	"XOF": {},
	"XPF": {},
}

var hundred = decimal.NewFromInt(100)

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsZeroDecimal(code string) bool {
	_, ok := zeroDecimal[Normalize(code)]
	return ok
}

// Places is the number of decimal places amounts in code are shown with.
func Places(code string) int32 {
	if IsZeroDecimal(code) {
		return 0
	}
	return 2
}

// ToMinorUnits converts a stored decimal amount to the provider's integer
// amount: unchanged for zero-decimal currencies, cents for everything else.
func ToMinorUnits(amount decimal.Decimal, code string) int64 {
	if IsZeroDecimal(code) {
		return amount.Round(0).IntPart()
	}

	return amount.Mul(hundred).Round(0).IntPart()
}

// Format renders amount with the currency's decimal places.
func Format(amount decimal.Decimal, code string) string {
	return amount.StringFixed(Places(code))
}
