package purchase

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/currency"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type resolvedItem struct {
	item  CartItem
	line  inventory.InventoryLine
	price decimal.Decimal
}

// ValidateCart checks a cart against inventory line snapshots and returns the
// priced intent. Each rule is evaluated over the whole cart and the first rule
// that fails is reported with every offending line. It has no side effects.
func ValidateCart(cart Cart, lines map[string]inventory.InventoryLine, now time.Time) (Intent, error) {
	resolved, err := resolveCart(cart, lines)
	if err != nil {
		return Intent{}, err
	}

	var free, paid []string
	for _, r := range resolved {
		if r.price.IsZero() {
			free = append(free, r.line.Name)
		} else {
			paid = append(paid, r.line.Name)
		}
	}
	if len(free) > 0 && len(paid) > 0 {
		return Intent{}, errors.NewWithErrors(http.StatusUnprocessableEntity, status.MIXED_FREE_PAID_NOT_ALLOWED,
			"free and paid items cannot be purchased together",
			[]string{fmt.Sprintf("free: %s; paid: %s", strings.Join(free, ", "), strings.Join(paid, ", "))})
	}

	if errs := collect(resolved, func(r resolvedItem) string {
		if r.item.Quantity > r.line.AvailableQty {
			return fmt.Sprintf("'%s' has %d left, %d requested", r.line.Name, r.line.AvailableQty, r.item.Quantity)
		}
		return ""
	}); len(errs) > 0 {
		return Intent{}, errors.NewWithErrors(http.StatusConflict, status.INSUFFICIENT_QUANTITY, "insufficient quantity", errs)
	}

	if errs := collect(resolved, func(r resolvedItem) string {
		if r.item.Quantity < r.line.MinPerOrder {
			return fmt.Sprintf("'%s' quantity %d is below min_per_order %d", r.line.Name, r.item.Quantity, r.line.MinPerOrder)
		}
		if r.line.MaxPerOrder != nil && r.item.Quantity > *r.line.MaxPerOrder {
			return fmt.Sprintf("'%s' quantity %d is above max_per_order %d", r.line.Name, r.item.Quantity, *r.line.MaxPerOrder)
		}
		return ""
	}); len(errs) > 0 {
		return Intent{}, errors.NewWithErrors(http.StatusUnprocessableEntity, status.ORDER_POLICY_VIOLATION, "order policy violation", errs)
	}

	if errs := collect(resolved, func(r resolvedItem) string {
		if !r.line.OnSale(now) {
			return fmt.Sprintf("'%s' is not on sale", r.line.Name)
		}
		return ""
	}); len(errs) > 0 {
		return Intent{}, errors.NewWithErrors(http.StatusUnprocessableEntity, status.NOT_ON_SALE, "not on sale", errs)
	}

	if cart.Buyer.IsGuest() {
		if errs := collect(resolved, func(r resolvedItem) string {
			if r.line.RequiresAuthenticatedBuyer {
				return fmt.Sprintf("'%s' requires a signed in buyer", r.line.Name)
			}
			return ""
		}); len(errs) > 0 {
			return Intent{}, errors.NewWithErrors(http.StatusUnauthorized, status.AUTHENTICATION_REQUIRED, "authentication required", errs)
		}
	}

	intent := Intent{
		Purchasable: cart.Purchasable,
		Buyer:       cart.Buyer,
		Currency:    resolved[0].line.Currency,
		Lines:       make([]IntentLine, len(resolved)),
		Total:       decimal.Zero,
	}
	for k, r := range resolved {
		intent.Lines[k] = IntentLine{Line: r.line, UnitPrice: r.price, Quantity: r.item.Quantity}
		intent.Total = intent.Total.Add(r.price.Mul(decimal.NewFromInt(r.item.Quantity)))
	}

	return intent, nil
}

// resolveCart runs the structural checks and prices every entry.
func resolveCart(cart Cart, lines map[string]inventory.InventoryLine) ([]resolvedItem, error) {
	if len(cart.Items) == 0 {
		return nil, errors.NewWithErrors(http.StatusBadRequest, status.BAD_REQUEST, "cart is empty", []string{"items must not be empty"})
	}

	var errs []string
	seen := make(map[string]bool)
	resolved := make([]resolvedItem, 0, len(cart.Items))

	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("quantity for '%s' must be positive", item.InventoryLineID))
			continue
		}

		line, ok := lines[item.InventoryLineID]
		if !ok || line.SoftDeleted {
			return nil, errors.NewWithErrors(http.StatusNotFound, status.NOT_FOUND, "inventory line is not found",
				[]string{fmt.Sprintf("inventory line '%s' is not found", item.InventoryLineID)})
		}

		if !line.BelongsTo(cart.Purchasable) {
			errs = append(errs, fmt.Sprintf("inventory line '%s' does not belong to %s '%s'", line.ID, cart.Purchasable.Kind, cart.Purchasable.ID))
			continue
		}

		if line.PayWhatYouWant && item.CustomPrice != nil {
			places := currency.Places(line.Currency)
			if !item.CustomPrice.Equal(item.CustomPrice.Round(places)) {
				errs = append(errs, fmt.Sprintf("custom_price for '%s' allows at most %d decimal places in %s", line.ID, places, currency.Normalize(line.Currency)))
				continue
			}
		}

		if seen[line.ID] {
			return nil, errors.NewWithErrors(http.StatusUnprocessableEntity, status.ORDER_POLICY_VIOLATION, "order policy violation",
				[]string{fmt.Sprintf("inventory line '%s' appears more than once", line.ID)})
		}
		seen[line.ID] = true

		resolved = append(resolved, resolvedItem{
			item:  item,
			line:  line,
			price: line.EffectivePrice(item.CustomPrice),
		})
	}

	if len(errs) > 0 {
		return nil, errors.NewWithErrors(http.StatusBadRequest, status.BAD_REQUEST, "invalid cart", errs)
	}

	code := currency.Normalize(resolved[0].line.Currency)
	for _, r := range resolved[1:] {
		if currency.Normalize(r.line.Currency) != code {
			return nil, errors.NewWithErrors(http.StatusUnprocessableEntity, status.ORDER_POLICY_VIOLATION, "order policy violation",
				[]string{"all items must share one currency"})
		}
	}

	return resolved, nil
}

func collect(resolved []resolvedItem, check func(resolvedItem) string) []string {
	var errs []string
	for _, r := range resolved {
		if msg := check(r); msg != "" {
			errs = append(errs, msg)
		}
	}

	return errs
}
