package purchase

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/currency"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// CheckRefundable reports whether item can be refunded now.
func CheckRefundable(item PurchasedItem) error {
	switch item.State {
	case StatePaid:
		return nil
	case StateRefunded:
		return errors.New(http.StatusConflict, status.ALREADY_REFUNDED, fmt.Sprintf("purchased item '%s' is already refunded", item.ID))
	default:
		return errors.New(http.StatusConflict, status.NOT_REFUNDABLE, fmt.Sprintf("purchased item '%s' is %s and cannot be refunded", item.ID, item.State))
	}
}

// NativeRefundAmount converts a stored price to the amount the payment
// provider expects for currency.
func NativeRefundAmount(price decimal.Decimal, code string) int64 {
	return currency.ToMinorUnits(price, code)
}
