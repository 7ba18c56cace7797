package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryLineResponse struct {
	ID                         string           `json:"id"`
	Name                       string           `json:"name"`
	AvailableQty               int64            `json:"available_qty"`
	UnitPrice                  decimal.Decimal  `json:"unit_price"`
	Currency                   string           `json:"currency"`
	MinPerOrder                int64            `json:"min_per_order"`
	MaxPerOrder                *int64           `json:"max_per_order"`
	SellingStart               *time.Time       `json:"selling_start"`
	SellingEnd                 *time.Time       `json:"selling_end"`
	PayWhatYouWant             bool             `json:"pay_what_you_want"`
	MinimumPrice               *decimal.Decimal `json:"minimum_price"`
	RequiresAuthenticatedBuyer bool             `json:"requires_authenticated_buyer"`
	OnSale                     bool             `json:"on_sale"`
}

func (r *InventoryLineResponse) PopulateFromEntity(l InventoryLine, now time.Time) {
	r.ID = l.ID
	r.Name = l.Name
	r.AvailableQty = l.AvailableQty
	r.UnitPrice = l.UnitPrice
	r.Currency = l.Currency
	r.MinPerOrder = l.MinPerOrder
	r.MaxPerOrder = l.MaxPerOrder
	r.SellingStart = l.SellingStart
	r.SellingEnd = l.SellingEnd
	r.PayWhatYouWant = l.PayWhatYouWant
	if l.MinimumPrice.Valid {
		r.MinimumPrice = &l.MinimumPrice.Decimal
	}
	r.RequiresAuthenticatedBuyer = l.RequiresAuthenticatedBuyer
	r.OnSale = l.OnSale(now)
}
