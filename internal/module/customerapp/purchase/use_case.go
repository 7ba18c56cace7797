package purchase

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/metrics"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/outbox"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type PurchaseUseCase interface {
	PlacePurchase(ctx context.Context, req PlacePurchaseRequest) (PurchaseResponse, error)
	GetPurchase(ctx context.Context, ID string) (PurchaseResponse, error)
	GetManyPurchase(ctx context.Context, req GetManyPurchaseRequest) (GetManyPurchaseResponse, error)
	CompletePurchase(ctx context.Context, cmd CompletionCommand) error
	FailPurchase(ctx context.Context, cmd CompletionCommand) error
	RefundItem(ctx context.Context, purchaseID, itemID string, req RefundRequest) (PurchaseResponse, error)
	RefundPurchase(ctx context.Context, purchaseID string, req RefundRequest) (PurchaseResponse, error)
}

// OutboxWriter stores an event in the caller's transaction.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Event, tx *sql.Tx) error
}

type purchaseUseCase struct {
	logger                    *logrus.Logger
	timeout                   time.Duration
	purchasePaidTopic         string
	purchaseItemRefundedTopic string
	purchasableRegistry       purchasable.Registry
	inventoryLineRepository   inventory.InventoryLineRepository
	purchaseRepository        PurchaseRepository
	purchasedItemRepository   PurchasedItemRepository
	paymentProvider           PaymentProvider
	outbox                    OutboxWriter
	notifier                  Notifier
	metrics                   *metrics.FulfillmentMetrics
	now                       func() time.Time
}

type PurchaseUseCaseProperty struct {
	Logger                    *logrus.Logger
	Timeout                   time.Duration
	PurchasePaidTopic         string
	PurchaseItemRefundedTopic string
	PurchasableRegistry       purchasable.Registry
	InventoryLineRepository   inventory.InventoryLineRepository
	PurchaseRepository        PurchaseRepository
	PurchasedItemRepository   PurchasedItemRepository
	PaymentProvider           PaymentProvider
	Outbox                    OutboxWriter
	Notifier                  Notifier
	Metrics                   *metrics.FulfillmentMetrics
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewPurchaseUseCase(props PurchaseUseCaseProperty) PurchaseUseCase {
	now := props.Now
	if now == nil {
		now = time.Now
	}

	return &purchaseUseCase{
		logger:                    props.Logger,
		timeout:                   props.Timeout,
		purchasePaidTopic:         props.PurchasePaidTopic,
		purchaseItemRefundedTopic: props.PurchaseItemRefundedTopic,
		purchasableRegistry:       props.PurchasableRegistry,
		inventoryLineRepository:   props.InventoryLineRepository,
		purchaseRepository:        props.PurchaseRepository,
		purchasedItemRepository:   props.PurchasedItemRepository,
		paymentProvider:           props.PaymentProvider,
		outbox:                    props.Outbox,
		notifier:                  props.Notifier,
		metrics:                   props.Metrics,
		now:                       now,
	}
}

// PlacePurchase implements PurchaseUseCase.
func (u *purchaseUseCase) PlacePurchase(ctx context.Context, req PlacePurchaseRequest) (PurchaseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	buyer := Buyer{Email: req.GuestEmail}
	if acc, ok := session.LookupAccountFromCtx(ctx); ok {
		buyer = Buyer{AccountID: &acc.ID, Email: acc.Email}
	} else if req.GuestEmail == "" {
		return PurchaseResponse{}, errors.NewWithErrors(http.StatusBadRequest, status.BAD_REQUEST, "guest checkout requires an email",
			[]string{"guest_email is required when not signed in"})
	}

	if _, err := u.purchasableRegistry.Resolve(ctx, req.Purchasable, nil); err != nil {
		return PurchaseResponse{}, err
	}

	lines := make(map[string]inventory.InventoryLine, len(req.Items))
	for _, item := range req.Items {
		if _, ok := lines[item.InventoryLineID]; ok {
			continue
		}

		l, err := u.inventoryLineRepository.FindByID(ctx, item.InventoryLineID, nil)
		if err != nil {
			if errors.HasStatus(err, status.NOT_FOUND) {
				continue
			}
			return PurchaseResponse{}, err
		}
		lines[l.ID] = l
	}

	now := u.now()

	intent, err := ValidateCart(req.ToCart(buyer), lines, now)
	if err != nil {
		return PurchaseResponse{}, err
	}

	p := NewPurchase(intent, util.GenerateTimestampWithPrefix("TP"), now)

	tx, err := u.purchaseRepository.BeginTx(ctx)
	if err != nil {
		return PurchaseResponse{}, err
	}

	if err := u.purchaseRepository.Save(ctx, p, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return PurchaseResponse{}, err
	}

	for _, item := range p.Items {
		if err := u.purchasedItemRepository.Save(ctx, item, tx); err != nil {
			u.purchaseRepository.Rollback(ctx, tx)
			return PurchaseResponse{}, err
		}
	}

	if p.State == StatePaid {
		if err := u.decrement(ctx, p.Items, tx); err != nil {
			u.purchaseRepository.Rollback(ctx, tx)
			return PurchaseResponse{}, err
		}

		if err := u.writePurchasePaid(ctx, p, now, tx); err != nil {
			u.purchaseRepository.Rollback(ctx, tx)
			return PurchaseResponse{}, err
		}
	}

	if err := u.purchaseRepository.CommitTx(ctx, tx); err != nil {
		return PurchaseResponse{}, err
	}

	u.metrics.PurchasesPlaced.WithLabelValues(p.State).Inc()

	if p.State == StatePaid {
		u.notifyAsync(ctx, p)

		resp := PurchaseResponse{}
		resp.PopulateFromEntity(p)
		return resp, nil
	}

	checkout, err := u.paymentProvider.CreateCheckout(ctx, p)
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("purchase_id", p.ID).Error("checkout could not be created")

		if _, ferr := u.purchaseRepository.MarkFailed(ctx, p.ID, u.now(), nil); ferr != nil {
			u.logger.WithContext(ctx).WithError(ferr).WithField("purchase_id", p.ID).Error()
		}

		return PurchaseResponse{}, errors.New(http.StatusBadGateway, status.PAYMENT_INITIATION_FAILED, "payment could not be initiated")
	}

	if err := u.purchaseRepository.UpdateCheckout(ctx, p.ID, checkout.SessionID, checkout.URL, u.now(), nil); err != nil {
		return PurchaseResponse{}, err
	}

	p.PaymentReference = &checkout.SessionID
	p.CheckoutURL = &checkout.URL

	resp := PurchaseResponse{}
	resp.PopulateFromEntity(p)

	return resp, nil
}

// GetPurchase implements PurchaseUseCase. Buyers only see their own purchases.
func (u *purchaseUseCase) GetPurchase(ctx context.Context, ID string) (PurchaseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return PurchaseResponse{}, err
	}

	p, err := u.findWithItems(ctx, ID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	if acc.Role != session.RoleAdmin && (p.BuyerID == nil || *p.BuyerID != acc.ID) {
		return PurchaseResponse{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("purchase's properties with id '%s' is not found", ID))
	}

	resp := PurchaseResponse{}
	resp.PopulateFromEntity(p)

	return resp, nil
}

// GetManyPurchase implements PurchaseUseCase.
func (u *purchaseUseCase) GetManyPurchase(ctx context.Context, req GetManyPurchaseRequest) (GetManyPurchaseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return GetManyPurchaseResponse{}, err
	}

	total, err := u.purchaseRepository.Count(ctx, acc.ID, nil)
	if err != nil {
		return GetManyPurchaseResponse{}, err
	}

	purchases, err := u.purchaseRepository.FindMany(ctx, acc.ID, (req.Page-1)*req.Size, req.Size, nil)
	if err != nil {
		return GetManyPurchaseResponse{}, err
	}

	resp := GetManyPurchaseResponse{
		Purchases: make([]PurchaseResponse, len(purchases)),
		Pagination: response.PaginationMeta{
			Page:      req.Page,
			Size:      req.Size,
			TotalData: total,
			TotalPage: int64(math.Ceil(float64(total) / float64(req.Size))),
		},
	}

	for k, p := range purchases {
		items, err := u.purchasedItemRepository.FindManyByPurchaseID(ctx, p.ID, nil)
		if err != nil {
			return GetManyPurchaseResponse{}, err
		}
		p.Items = items
		resp.Purchases[k].PopulateFromEntity(p)
	}

	return resp, nil
}

// CompletePurchase implements PurchaseUseCase. Completing a purchase that is
// already paid succeeds without touching anything.
func (u *purchaseUseCase) CompletePurchase(ctx context.Context, cmd CompletionCommand) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	p, err := u.locate(ctx, cmd)
	if err != nil {
		u.metrics.Completions.WithLabelValues("unknown_purchase").Inc()
		return err
	}

	switch p.State {
	case StatePaid:
		u.metrics.Completions.WithLabelValues("duplicate").Inc()
		return nil
	case StateFailed, StateRefunded:
		u.logger.WithContext(ctx).WithFields(logrus.Fields{
			"purchase_id": p.ID,
			"state":       p.State,
		}).Warn("payment confirmed for a purchase that is no longer pending")
		u.metrics.Completions.WithLabelValues("ignored").Inc()
		return nil
	}

	var paymentIntent *string
	if cmd.PaymentIntent != "" {
		paymentIntent = &cmd.PaymentIntent
	}

	now := u.now()

	tx, err := u.purchaseRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	transitioned, err := u.purchaseRepository.MarkPaid(ctx, p.ID, paymentIntent, now, tx)
	if err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if !transitioned {
		u.purchaseRepository.Rollback(ctx, tx)
		u.metrics.Completions.WithLabelValues("duplicate").Inc()
		return nil
	}

	items, err := u.purchasedItemRepository.FindManyByPurchaseID(ctx, p.ID, tx)
	if err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.purchasedItemRepository.MarkPaidByPurchaseID(ctx, p.ID, now, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.decrement(ctx, items, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		if errors.HasStatus(err, status.INSUFFICIENT_QUANTITY) {
			u.logger.WithContext(ctx).WithError(err).WithField("purchase_id", p.ID).Warn("purchase could not be completed")
			u.metrics.Completions.WithLabelValues("insufficient_quantity").Inc()
		}
		return err
	}

	p.State = StatePaid
	p.UpdatedAt = now
	if paymentIntent != nil {
		p.PaymentIntent = paymentIntent
	}
	p.Items = items
	for k := range p.Items {
		p.Items[k].State = StatePaid
	}

	if err := u.writePurchasePaid(ctx, p, now, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.purchaseRepository.CommitTx(ctx, tx); err != nil {
		return err
	}

	u.metrics.Completions.WithLabelValues("completed").Inc()
	u.notifyAsync(ctx, p)

	return nil
}

// FailPurchase implements PurchaseUseCase. Only pending purchases fail.
func (u *purchaseUseCase) FailPurchase(ctx context.Context, cmd CompletionCommand) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	p, err := u.locate(ctx, cmd)
	if err != nil {
		return err
	}

	if p.State != StatePending {
		return nil
	}

	if _, err := u.purchaseRepository.MarkFailed(ctx, p.ID, u.now(), nil); err != nil {
		return err
	}

	return nil
}

// RefundItem implements PurchaseUseCase.
func (u *purchaseUseCase) RefundItem(ctx context.Context, purchaseID, itemID string, req RefundRequest) (PurchaseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	p, err := u.purchaseRepository.FindByID(ctx, purchaseID, nil)
	if err != nil {
		return PurchaseResponse{}, err
	}

	item, err := u.purchasedItemRepository.FindByID(ctx, itemID, nil)
	if err != nil {
		return PurchaseResponse{}, err
	}

	if item.PurchaseID != p.ID {
		return PurchaseResponse{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("purchased item's properties with id '%s' is not found", itemID))
	}

	if err := u.refund(ctx, p, item, req.Reason); err != nil {
		return PurchaseResponse{}, err
	}

	p, err = u.findWithItems(ctx, purchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	resp := PurchaseResponse{}
	resp.PopulateFromEntity(p)

	return resp, nil
}

// RefundPurchase implements PurchaseUseCase. Every paid item is refunded on
// its own, a failure stops the run and keeps the items already refunded.
func (u *purchaseUseCase) RefundPurchase(ctx context.Context, purchaseID string, req RefundRequest) (PurchaseResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	p, err := u.findWithItems(ctx, purchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	switch p.State {
	case StatePaid:
	case StateRefunded:
		return PurchaseResponse{}, errors.New(http.StatusConflict, status.ALREADY_REFUNDED, fmt.Sprintf("purchase '%s' is already refunded", p.ID))
	default:
		return PurchaseResponse{}, errors.New(http.StatusConflict, status.NOT_REFUNDABLE, fmt.Sprintf("purchase '%s' is %s and cannot be refunded", p.ID, p.State))
	}

	for _, item := range p.Items {
		if item.State != StatePaid {
			continue
		}

		if err := u.refund(ctx, p, item, req.Reason); err != nil {
			return PurchaseResponse{}, err
		}
	}

	p, err = u.findWithItems(ctx, purchaseID)
	if err != nil {
		return PurchaseResponse{}, err
	}

	resp := PurchaseResponse{}
	resp.PopulateFromEntity(p)

	return resp, nil
}

// refund reverses one paid item. The provider is called before any row is
// touched and no transaction is open while it runs.
func (u *purchaseUseCase) refund(ctx context.Context, p Purchase, item PurchasedItem, reason string) error {
	if err := CheckRefundable(item); err != nil {
		u.metrics.Refunds.WithLabelValues("rejected").Inc()
		return err
	}

	amount := NativeRefundAmount(item.Price, item.Currency)

	var refundReference *string
	if amount > 0 {
		if p.PaymentIntent == nil {
			u.logger.WithContext(ctx).WithField("purchase_id", p.ID).Error("purchase has no payment intent to refund against")
			u.metrics.Refunds.WithLabelValues("failed").Inc()
			return errors.New(http.StatusBadGateway, status.REFUND_FAILED, "refund could not be processed by the payment provider")
		}

		result, err := u.paymentProvider.Refund(ctx, RefundCommand{
			PaymentIntent:  *p.PaymentIntent,
			Amount:         amount,
			Reason:         reason,
			IdempotencyKey: "refund-" + item.ID,
		})
		if err != nil {
			u.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"purchase_id":       p.ID,
				"purchased_item_id": item.ID,
			}).Error("refund failed at the payment provider")
			u.metrics.Refunds.WithLabelValues("failed").Inc()
			return errors.New(http.StatusBadGateway, status.REFUND_FAILED, "refund could not be processed by the payment provider")
		}
		refundReference = &result.ID
	}

	var refundReason *string
	if reason != "" {
		refundReason = &reason
	}

	now := u.now()

	tx, err := u.purchaseRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	transitioned, err := u.purchasedItemRepository.MarkRefunded(ctx, item.ID, refundReference, refundReason, now, tx)
	if err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if !transitioned {
		u.purchaseRepository.Rollback(ctx, tx)
		u.metrics.Refunds.WithLabelValues("rejected").Inc()
		return errors.New(http.StatusConflict, status.ALREADY_REFUNDED, fmt.Sprintf("purchased item '%s' is already refunded", item.ID))
	}

	if err := u.inventoryLineRepository.Increment(ctx, item.InventoryLineID, 1, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	remaining, err := u.purchasedItemRepository.CountByState(ctx, p.ID, StatePaid, tx)
	if err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	purchaseRefunded := false
	if remaining == 0 {
		purchaseRefunded, err = u.purchaseRepository.MarkRefunded(ctx, p.ID, now, tx)
		if err != nil {
			u.purchaseRepository.Rollback(ctx, tx)
			return err
		}
	}

	payload, err := json.Marshal(PurchaseItemRefundedEvent{
		PurchaseID:       p.ID,
		PurchasedItemID:  item.ID,
		InventoryLineID:  item.InventoryLineID,
		Price:            item.Price,
		Currency:         item.Currency,
		NativeAmount:     amount,
		RefundReference:  refundReference,
		Reason:           refundReason,
		PurchaseRefunded: purchaseRefunded,
		RefundedAt:       now,
	})
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("purchased_item_id", item.ID).Error("an error occurred while encoding the refund event")
		u.purchaseRepository.Rollback(ctx, tx)
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while encoding the refund event")
	}

	if err := u.outbox.Save(ctx, outbox.Event{
		ID:            uuid.NewString(),
		AggregateType: AggregateTypePurchase,
		AggregateID:   p.ID,
		Type:          EventTypePurchaseItemRefunded,
		Topic:         u.purchaseItemRefundedTopic,
		Payload:       payload,
		CreatedAt:     now,
	}, tx); err != nil {
		u.purchaseRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.purchaseRepository.CommitTx(ctx, tx); err != nil {
		return err
	}

	u.metrics.Refunds.WithLabelValues("refunded").Inc()

	return nil
}

func (u *purchaseUseCase) findWithItems(ctx context.Context, ID string) (Purchase, error) {
	p, err := u.purchaseRepository.FindByID(ctx, ID, nil)
	if err != nil {
		return Purchase{}, err
	}

	items, err := u.purchasedItemRepository.FindManyByPurchaseID(ctx, ID, nil)
	if err != nil {
		return Purchase{}, err
	}
	p.Items = items

	return p, nil
}

// locate finds the purchase a provider event refers to, by the id carried in
// metadata first and then by the provider's own references.
func (u *purchaseUseCase) locate(ctx context.Context, cmd CompletionCommand) (Purchase, error) {
	if cmd.PurchaseID != "" {
		p, err := u.purchaseRepository.FindByID(ctx, cmd.PurchaseID, nil)
		if err == nil {
			return p, nil
		}
		if !errors.HasStatus(err, status.NOT_FOUND) {
			return Purchase{}, err
		}
	}

	for _, reference := range []string{cmd.PaymentReference, cmd.PaymentIntent} {
		if reference == "" {
			continue
		}

		p, err := u.purchaseRepository.FindByPaymentReference(ctx, reference, nil)
		if err == nil {
			return p, nil
		}
		if !errors.HasStatus(err, status.NOT_FOUND) {
			return Purchase{}, err
		}
	}

	return Purchase{}, errors.New(http.StatusNotFound, status.UNKNOWN_PURCHASE, "no purchase matches the payment event")
}

// decrement takes one unit per item from each line within tx.
func (u *purchaseUseCase) decrement(ctx context.Context, items []PurchasedItem, tx *sql.Tx) error {
	for _, lq := range QuantitiesByLine(items) {
		if err := u.inventoryLineRepository.Decrement(ctx, lq.InventoryLineID, lq.Quantity, tx); err != nil {
			return err
		}
	}

	return nil
}

func (u *purchaseUseCase) writePurchasePaid(ctx context.Context, p Purchase, paidAt time.Time, tx *sql.Tx) error {
	payload, err := json.Marshal(NewPurchasePaidEvent(p, paidAt))
	if err != nil {
		u.logger.WithContext(ctx).WithError(err).WithField("purchase_id", p.ID).Error("an error occurred while encoding the purchase paid event")
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while encoding the purchase paid event")
	}

	return u.outbox.Save(ctx, outbox.Event{
		ID:            uuid.NewString(),
		AggregateType: AggregateTypePurchase,
		AggregateID:   p.ID,
		Type:          EventTypePurchasePaid,
		Topic:         u.purchasePaidTopic,
		Payload:       payload,
		CreatedAt:     paidAt,
	}, tx)
}

// notifyAsync enqueues the confirmation off the request path. Failures are
// logged and never reach the caller.
func (u *purchaseUseCase) notifyAsync(ctx context.Context, p Purchase) {
	if u.notifier == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, u.timeout)
		defer cancel()

		if err := u.notifier.NotifyPurchasePaid(ctx, p); err != nil {
			u.logger.WithContext(ctx).WithError(err).WithField("purchase_id", p.ID).Warn("purchase confirmation could not be enqueued")
		}
	}()
}
