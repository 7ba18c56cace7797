package purchase

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
)

type PurchasedItemResponse struct {
	ID              string          `json:"id"`
	InventoryLineID string          `json:"inventory_line_id"`
	Name            string          `json:"name"`
	State           string          `json:"state"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	RefundedAt      *time.Time      `json:"refunded_at,omitempty"`
	RefundReference *string         `json:"refund_reference,omitempty"`
}

type PurchaseResponse struct {
	ID              string                  `json:"id"`
	State           string                  `json:"state"`
	PurchasableKind string                  `json:"purchasable_kind"`
	PurchasableID   string                  `json:"purchasable_id"`
	Currency        string                  `json:"currency"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	PurchasedItems  []PurchasedItemResponse `json:"purchased_items"`
	CheckoutURL     *string                 `json:"checkout_url,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

func (r *PurchaseResponse) PopulateFromEntity(p Purchase) {
	r.ID = p.ID
	r.State = p.State
	r.PurchasableKind = string(p.PurchasableKind)
	r.PurchasableID = p.PurchasableID
	r.Currency = p.Currency
	r.TotalAmount = p.TotalAmount
	r.CreatedAt = p.CreatedAt
	if p.State == StatePending {
		r.CheckoutURL = p.CheckoutURL
	}

	r.PurchasedItems = make([]PurchasedItemResponse, len(p.Items))
	for k, item := range p.Items {
		r.PurchasedItems[k] = PurchasedItemResponse{
			ID:              item.ID,
			InventoryLineID: item.InventoryLineID,
			Name:            item.Name,
			State:           item.State,
			Price:           item.Price,
			Currency:        item.Currency,
			RefundedAt:      item.RefundedAt,
			RefundReference: item.RefundReference,
		}
	}
}

type GetManyPurchaseResponse struct {
	Purchases  []PurchaseResponse
	Pagination response.PaginationMeta
}
