package purchase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/stripe"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/currency"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/metrics"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type Checkout struct {
	SessionID string
	URL       string
}

type RefundCommand struct {
	PaymentIntent  string
	Amount         int64
	Reason         string
	IdempotencyKey string
}

type RefundResult struct {
	ID     string
	Status string
}

// PaymentProvider is the contract fulfillment expects from a payment processor.
// CreateCheckout is never called for zero totals.
type PaymentProvider interface {
	CreateCheckout(ctx context.Context, p Purchase) (Checkout, error)
	Refund(ctx context.Context, cmd RefundCommand) (RefundResult, error)
}

type stripePaymentProvider struct {
	logger           *logrus.Logger
	stripeRepository stripe.StripeRepository
	metrics          *metrics.FulfillmentMetrics
	successURL       string
	cancelURL        string
}

type StripePaymentProviderProperty struct {
	Logger           *logrus.Logger
	StripeRepository stripe.StripeRepository
	Metrics          *metrics.FulfillmentMetrics
	SuccessURL       string
	CancelURL        string
}

func NewStripePaymentProvider(props StripePaymentProviderProperty) PaymentProvider {
	return &stripePaymentProvider{
		logger:           props.Logger,
		stripeRepository: props.StripeRepository,
		metrics:          props.Metrics,
		successURL:       props.SuccessURL,
		cancelURL:        props.CancelURL,
	}
}

// CheckoutLineItems groups items sharing a line and price into one provider
// line item priced in the currency's minor unit.
func CheckoutLineItems(p Purchase) []stripe.LineItem {
	type group struct {
		lineID string
		price  string
	}

	index := make(map[group]int)
	out := make([]stripe.LineItem, 0)

	for _, item := range p.Items {
		g := group{lineID: item.InventoryLineID, price: item.Price.String()}
		if k, ok := index[g]; ok {
			out[k].Quantity++
			continue
		}

		index[g] = len(out)
		out = append(out, stripe.LineItem{
			Name:       item.Name,
			UnitAmount: currency.ToMinorUnits(item.Price, p.Currency),
			Quantity:   1,
		})
	}

	return out
}

// CreateCheckout implements PaymentProvider.
func (s *stripePaymentProvider) CreateCheckout(ctx context.Context, p Purchase) (Checkout, error) {
	defer s.observe("create_checkout", time.Now())

	session, err := s.stripeRepository.CreateCheckoutSession(ctx, stripe.CheckoutSessionRequest{
		PurchaseID:    p.ID,
		Currency:      currency.Normalize(p.Currency),
		CustomerEmail: p.BuyerEmail,
		SuccessURL:    strings.ReplaceAll(s.successURL, "{PURCHASE_ID}", p.ID),
		CancelURL:     strings.ReplaceAll(s.cancelURL, "{PURCHASE_ID}", p.ID),
		LineItems:     CheckoutLineItems(p),
	})
	if err != nil {
		return Checkout{}, errors.New(http.StatusBadGateway, status.PAYMENT_INITIATION_FAILED, "payment could not be initiated")
	}

	return Checkout{SessionID: session.ID, URL: session.URL}, nil
}

// Refund implements PaymentProvider.
func (s *stripePaymentProvider) Refund(ctx context.Context, cmd RefundCommand) (RefundResult, error) {
	defer s.observe("refund", time.Now())

	req := stripe.RefundRequest{
		PaymentIntent: cmd.PaymentIntent,
		Amount:        cmd.Amount,
		Reason:        stripe.RefundReasonRequestedByCustomer,
	}
	if cmd.Reason != "" {
		req.Metadata = map[string]string{"reason": cmd.Reason}
	}

	refund, err := s.stripeRepository.CreateRefund(ctx, req, cmd.IdempotencyKey)
	if err != nil {
		return RefundResult{}, errors.New(http.StatusBadGateway, status.REFUND_FAILED, "refund could not be processed by the payment provider")
	}

	return RefundResult{ID: refund.ID, Status: refund.Status}, nil
}

func (s *stripePaymentProvider) observe(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ProviderLatencyMS.WithLabelValues(operation).Observe(float64(time.Since(start).Milliseconds()))
}
