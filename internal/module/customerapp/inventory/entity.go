package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
)

// InventoryLine is one orderable item type, e.g. a ticket tier.
type InventoryLine struct {
	ID                         string
	PurchasableKind            purchasable.Kind
	PurchasableID              string
	Name                       string
	AvailableQty               int64
	UnitPrice                  decimal.Decimal
	Currency                   string
	MinPerOrder                int64
	MaxPerOrder                *int64
	SellingStart               *time.Time
	SellingEnd                 *time.Time
	PayWhatYouWant             bool
	MinimumPrice               decimal.NullDecimal
	RequiresAuthenticatedBuyer bool
	SoftDeleted                bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// OnSale reports whether now falls inside the selling window. A missing bound is open.
func (l InventoryLine) OnSale(now time.Time) bool {
	if l.SellingStart != nil && now.Before(*l.SellingStart) {
		return false
	}
	if l.SellingEnd != nil && now.After(*l.SellingEnd) {
		return false
	}

	return true
}

// EffectivePrice is the unit price charged for this line. Pay what you want
// lines take the custom price raised to the floor; other lines ignore it.
func (l InventoryLine) EffectivePrice(customPrice *decimal.Decimal) decimal.Decimal {
	if !l.PayWhatYouWant {
		return l.UnitPrice
	}

	floor := decimal.Zero
	if l.MinimumPrice.Valid {
		floor = l.MinimumPrice.Decimal
	}

	if customPrice == nil || customPrice.LessThan(floor) {
		return floor
	}

	return *customPrice
}

func (l InventoryLine) BelongsTo(ref purchasable.Reference) bool {
	return l.PurchasableKind == ref.Kind && l.PurchasableID == ref.ID
}
