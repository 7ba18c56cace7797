package purchase

import (
	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
)

type PlacePurchaseItemRequest struct {
	InventoryLineID string           `json:"inventory_line_id" validate:"required"`
	Quantity        int64            `json:"quantity" validate:"required,gte=1"`
	CustomPrice     *decimal.Decimal `json:"custom_price"`
}

type PlacePurchaseRequest struct {
	Purchasable purchasable.Reference      `json:"purchasable"`
	GuestEmail  string                     `json:"guest_email" validate:"omitempty,email"`
	Items       []PlacePurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r PlacePurchaseRequest) ToCart(buyer Buyer) Cart {
	cart := Cart{
		Purchasable: r.Purchasable,
		Buyer:       buyer,
		Items:       make([]CartItem, len(r.Items)),
	}
	for k, item := range r.Items {
		cart.Items[k] = CartItem{
			InventoryLineID: item.InventoryLineID,
			Quantity:        item.Quantity,
			CustomPrice:     item.CustomPrice,
		}
	}

	return cart
}

type GetManyPurchaseRequest struct {
	Page int64 `validate:"gte=1"`
	Size int64 `validate:"gte=1,lte=100"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
