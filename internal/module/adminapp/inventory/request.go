package inventory

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/currency"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

const datetimeLayout = "2006-01-02 15:04:05"

type CreateInventoryLineRequest struct {
	Purchasable                purchasable.Reference `json:"purchasable"`
	Name                       string                `json:"name" validate:"required,max=255"`
	Quantity                   int64                 `json:"quantity" validate:"gte=0"`
	UnitPrice                  decimal.Decimal       `json:"unit_price"`
	Currency                   string                `json:"currency" validate:"required,len=3,alpha"`
	MinPerOrder                int64                 `json:"min_per_order" validate:"gte=0"`
	MaxPerOrder                *int64                `json:"max_per_order" validate:"omitempty,gte=1"`
	SellingStart               string                `json:"selling_start" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	SellingEnd                 string                `json:"selling_end" validate:"omitempty,datetime=2006-01-02 15:04:05"`
	PayWhatYouWant             bool                  `json:"pay_what_you_want"`
	MinimumPrice               *decimal.Decimal      `json:"minimum_price"`
	RequiresAuthenticatedBuyer bool                  `json:"requires_authenticated_buyer"`
}

func parseDatetime(value string, location *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(datetimeLayout, value, location)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func checkAmount(field string, amount decimal.Decimal, code string) []string {
	errs := make([]string, 0)
	if amount.IsNegative() {
		errs = append(errs, fmt.Sprintf("%s must not be negative", field))
	}
	if !amount.Equal(amount.Round(currency.Places(code))) {
		errs = append(errs, fmt.Sprintf("%s has more decimal places than %s allows", field, code))
	}

	return errs
}

// ToEntity checks the rules that span fields and builds the line.
func (r CreateInventoryLineRequest) ToEntity(location *time.Location, now time.Time) (inventory.InventoryLine, error) {
	code := currency.Normalize(r.Currency)
	errs := make([]string, 0)

	errs = append(errs, checkAmount("unit_price", r.UnitPrice, code)...)

	minPerOrder := r.MinPerOrder
	if minPerOrder == 0 {
		minPerOrder = 1
	}
	if r.MaxPerOrder != nil && *r.MaxPerOrder < minPerOrder {
		errs = append(errs, "max_per_order must not be lower than min_per_order")
	}

	var minimumPrice decimal.NullDecimal
	switch {
	case r.PayWhatYouWant && r.MinimumPrice == nil:
		errs = append(errs, "minimum_price is required for pay what you want lines")
	case r.PayWhatYouWant:
		errs = append(errs, checkAmount("minimum_price", *r.MinimumPrice, code)...)
		minimumPrice = decimal.NewNullDecimal(*r.MinimumPrice)
	case r.MinimumPrice != nil:
		errs = append(errs, "minimum_price is only allowed for pay what you want lines")
	}

	sellingStart, err := parseDatetime(r.SellingStart, location)
	if err != nil {
		errs = append(errs, "selling_start is not a valid datetime")
	}
	sellingEnd, err := parseDatetime(r.SellingEnd, location)
	if err != nil {
		errs = append(errs, "selling_end is not a valid datetime")
	}
	if sellingStart != nil && sellingEnd != nil && !sellingEnd.After(*sellingStart) {
		errs = append(errs, "selling_end must be after selling_start")
	}

	if len(errs) > 0 {
		return inventory.InventoryLine{}, errors.NewWithErrors(http.StatusBadRequest, status.BAD_REQUEST, "inventory line is invalid", errs)
	}

	return inventory.InventoryLine{
		ID:                         util.GenerateTimestampWithPrefix("IL"),
		PurchasableKind:            r.Purchasable.Kind,
		PurchasableID:              r.Purchasable.ID,
		Name:                       r.Name,
		AvailableQty:               r.Quantity,
		UnitPrice:                  r.UnitPrice,
		Currency:                   code,
		MinPerOrder:                minPerOrder,
		MaxPerOrder:                r.MaxPerOrder,
		SellingStart:               sellingStart,
		SellingEnd:                 sellingEnd,
		PayWhatYouWant:             r.PayWhatYouWant,
		MinimumPrice:               minimumPrice,
		RequiresAuthenticatedBuyer: r.RequiresAuthenticatedBuyer,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}, nil
}
