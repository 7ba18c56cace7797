package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypePurchasePaid         = "purchase.paid"
	EventTypePurchaseItemRefunded = "purchase.item_refunded"

	AggregateTypePurchase = "purchase"
)

type PurchasePaidItem struct {
	ID              string          `json:"id"`
	InventoryLineID string          `json:"inventory_line_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
}

type PurchasePaidEvent struct {
	PurchaseID      string             `json:"purchase_id"`
	BuyerID         *int64             `json:"buyer_id"`
	BuyerEmail      string             `json:"buyer_email"`
	PurchasableKind string             `json:"purchasable_kind"`
	PurchasableID   string             `json:"purchasable_id"`
	Currency        string             `json:"currency"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	PaymentIntent   *string            `json:"payment_intent"`
	Items           []PurchasePaidItem `json:"items"`
	PaidAt          time.Time          `json:"paid_at"`
}

func NewPurchasePaidEvent(p Purchase, paidAt time.Time) PurchasePaidEvent {
	e := PurchasePaidEvent{
		PurchaseID:      p.ID,
		BuyerID:         p.BuyerID,
		BuyerEmail:      p.BuyerEmail,
		PurchasableKind: string(p.PurchasableKind),
		PurchasableID:   p.PurchasableID,
		Currency:        p.Currency,
		TotalAmount:     p.TotalAmount,
		PaymentIntent:   p.PaymentIntent,
		Items:           make([]PurchasePaidItem, len(p.Items)),
		PaidAt:          paidAt,
	}
	for k, item := range p.Items {
		e.Items[k] = PurchasePaidItem{
			ID:              item.ID,
			InventoryLineID: item.InventoryLineID,
			Name:            item.Name,
			Price:           item.Price,
		}
	}

	return e
}

type PurchaseItemRefundedEvent struct {
	PurchaseID       string          `json:"purchase_id"`
	PurchasedItemID  string          `json:"purchased_item_id"`
	InventoryLineID  string          `json:"inventory_line_id"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	NativeAmount     int64           `json:"native_amount"`
	RefundReference  *string         `json:"refund_reference"`
	Reason           *string         `json:"reason"`
	PurchaseRefunded bool            `json:"purchase_refunded"`
	RefundedAt       time.Time       `json:"refunded_at"`
}

// ConfirmationNotification is the body of the deferred confirmation task.
type ConfirmationNotification struct {
	PurchaseID  string `json:"purchase_id"`
	BuyerEmail  string `json:"buyer_email"`
	Currency    string `json:"currency"`
	TotalAmount string `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
}

// CompletionCommand carries what a provider event knows about a purchase.
type CompletionCommand struct {
	PurchaseID       string
	PaymentReference string
	PaymentIntent    string
}
