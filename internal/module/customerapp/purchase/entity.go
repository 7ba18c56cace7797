package purchase

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
)

const (
	StatePending  = "pending"
	StatePaid     = "paid"
	StateFailed   = "failed"
	StateRefunded = "refunded"
)

// Buyer is either an authenticated account or a guest identified by email.
type Buyer struct {
	AccountID *int64
	Email     string
}

func (b Buyer) IsGuest() bool {
	return b.AccountID == nil
}

type CartItem struct {
	InventoryLineID string
	Quantity        int64
	CustomPrice     *decimal.Decimal
}

type Cart struct {
	Purchasable purchasable.Reference
	Buyer       Buyer
	Items       []CartItem
}

// IntentLine is a validated cart entry priced at its effective unit price.
type IntentLine struct {
	Line      inventory.InventoryLine
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Intent is a cart that passed every order check and may be persisted.
type Intent struct {
	Purchasable purchasable.Reference
	Buyer       Buyer
	Currency    string
	Lines       []IntentLine
	Total       decimal.Decimal
}

func (i Intent) IsFree() bool {
	return i.Total.IsZero()
}

type Purchase struct {
	ID               string
	BuyerID          *int64
	BuyerEmail       string
	PurchasableKind  purchasable.Kind
	PurchasableID    string
	State            string
	Currency         string
	TotalAmount      decimal.Decimal
	PaymentReference *string
	PaymentIntent    *string
	CheckoutURL      *string
	Items            []PurchasedItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PurchasedItem struct {
	ID              string
	PurchaseID      string
	InventoryLineID string
	Name            string
	State           string
	Price           decimal.Decimal
	Currency        string
	RefundedAt      *time.Time
	RefundReference *string
	RefundReason    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPurchase expands an intent into a purchase with one item per unit. A
// zero total is born paid.
func NewPurchase(intent Intent, ID string, now time.Time) Purchase {
	state := StatePending
	if intent.IsFree() {
		state = StatePaid
	}

	p := Purchase{
		ID:              ID,
		BuyerID:         intent.Buyer.AccountID,
		BuyerEmail:      intent.Buyer.Email,
		PurchasableKind: intent.Purchasable.Kind,
		PurchasableID:   intent.Purchasable.ID,
		State:           state,
		Currency:        intent.Currency,
		TotalAmount:     decimal.Zero,
		Items:           make([]PurchasedItem, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, l := range intent.Lines {
		for q := int64(0); q < l.Quantity; q++ {
			p.Items = append(p.Items, PurchasedItem{
				ID:              uuid.NewString(),
				PurchaseID:      ID,
				InventoryLineID: l.Line.ID,
				Name:            l.Line.Name,
				State:           state,
				Price:           l.UnitPrice,
				Currency:        intent.Currency,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			p.TotalAmount = p.TotalAmount.Add(l.UnitPrice)
		}
	}

	return p
}

func (p Purchase) IsGuest() bool {
	return p.BuyerID == nil
}

// LineQuantity is how many units of one inventory line a purchase holds.
type LineQuantity struct {
	InventoryLineID string
	Quantity        int64
}

// QuantitiesByLine groups items by inventory line, ordered by line id so that
// concurrent completions touch rows in the same order.
func QuantitiesByLine(items []PurchasedItem) []LineQuantity {
	counts := make(map[string]int64)
	for _, item := range items {
		counts[item.InventoryLineID]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]LineQuantity, len(ids))
	for k, id := range ids {
		out[k] = LineQuantity{InventoryLineID: id, Quantity: counts[id]}
	}

	return out
}
