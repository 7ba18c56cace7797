package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchase"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/stripe"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/metrics"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// PurchaseCompleter is the part of the purchase use case a provider event
// drives.
type PurchaseCompleter interface {
	CompletePurchase(ctx context.Context, cmd purchase.CompletionCommand) error
	FailPurchase(ctx context.Context, cmd purchase.CompletionCommand) error
}

type WebhookUseCase interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

type webhookUseCase struct {
	logger                   *logrus.Logger
	timeout                  time.Duration
	secret                   string
	tolerance                time.Duration
	eventTTL                 time.Duration
	purchaseCompleter        PurchaseCompleter
	processedEventRepository ProcessedEventRepository
	metrics                  *metrics.FulfillmentMetrics
	now                      func() time.Time
}

type WebhookUseCaseProperty struct {
	Logger                   *logrus.Logger
	Timeout                  time.Duration
	Secret                   string
	Tolerance                time.Duration
	EventTTL                 time.Duration
	PurchaseCompleter        PurchaseCompleter
	ProcessedEventRepository ProcessedEventRepository
	Metrics                  *metrics.FulfillmentMetrics
	Now                      func() time.Time
}

func NewWebhookUseCase(props WebhookUseCaseProperty) WebhookUseCase {
	now := props.Now
	if now == nil {
		now = time.Now
	}

	return &webhookUseCase{
		logger:                   props.Logger,
		timeout:                  props.Timeout,
		secret:                   props.Secret,
		tolerance:                props.Tolerance,
		eventTTL:                 props.EventTTL,
		purchaseCompleter:        props.PurchaseCompleter,
		processedEventRepository: props.ProcessedEventRepository,
		metrics:                  props.Metrics,
		now:                      now,
	}
}

// HandleEvent implements WebhookUseCase. A nil error tells the provider the
// event is settled and must not be redelivered.
func (u *webhookUseCase) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if err := stripe.VerifySignature(payload, signature, u.secret, u.tolerance, u.now()); err != nil {
		u.logger.WithContext(ctx).WithError(err).Warn("webhook signature rejected")
		u.metrics.WebhookEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return errors.New(http.StatusBadRequest, status.INVALID_WEBHOOK_SIGNATURE, "webhook signature could not be verified")
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		u.metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return errors.New(http.StatusBadRequest, status.BAD_REQUEST, "webhook payload is not a valid event")
	}

	entry := u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if event.ID != "" {
		seen, err := u.processedEventRepository.Seen(ctx, event.ID)
		if err != nil {
			// the conditional updates downstream still hold, carry on
			entry.WithError(err).Warn("processed event lookup failed")
		}
		if seen {
			u.metrics.WebhookEvents.WithLabelValues(eventTypeLabel(event.Type), "replayed").Inc()
			return nil
		}
	}

	result, err := u.dispatch(ctx, event)
	if err != nil {
		entry.WithError(err).Warn("webhook event could not be applied")
		u.metrics.WebhookEvents.WithLabelValues(eventTypeLabel(event.Type), "error").Inc()
		return err
	}

	if event.ID != "" {
		if err := u.processedEventRepository.Remember(ctx, event.ID, u.eventTTL); err != nil {
			entry.WithError(err).Warn("processed event could not be remembered")
		}
	}

	entry.WithField("result", result).Info("webhook event handled")
	u.metrics.WebhookEvents.WithLabelValues(eventTypeLabel(event.Type), result).Inc()

	return nil
}

func (u *webhookUseCase) dispatch(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventCheckoutSessionCompleted, stripe.EventCheckoutSessionAsyncPaymentSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &cs); err != nil {
			return "", errors.New(http.StatusBadRequest, status.BAD_REQUEST, "checkout session object is malformed")
		}

		// a completed session paid by a delayed method is settled by the
		// async_payment_succeeded event later on
		if cs.PaymentStatus != stripe.PaymentStatusPaid && cs.PaymentStatus != stripe.PaymentStatusNoPaymentRequired {
			return "awaiting_payment", nil
		}

		return "completed", u.purchaseCompleter.CompletePurchase(ctx, purchase.CompletionCommand{
			PurchaseID:       cs.Metadata[stripe.MetadataPurchaseID],
			PaymentReference: cs.ID,
			PaymentIntent:    cs.PaymentIntent,
		})

	case stripe.EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Object, &pi); err != nil {
			return "", errors.New(http.StatusBadRequest, status.BAD_REQUEST, "payment intent object is malformed")
		}

		return "completed", u.purchaseCompleter.CompletePurchase(ctx, purchase.CompletionCommand{
			PurchaseID:    pi.Metadata[stripe.MetadataPurchaseID],
			PaymentIntent: pi.ID,
		})

	case stripe.EventCheckoutSessionExpired, stripe.EventCheckoutSessionAsyncPaymentFailed:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Object, &cs); err != nil {
			return "", errors.New(http.StatusBadRequest, status.BAD_REQUEST, "checkout session object is malformed")
		}

		return "failed", u.purchaseCompleter.FailPurchase(ctx, purchase.CompletionCommand{
			PurchaseID:       cs.Metadata[stripe.MetadataPurchaseID],
			PaymentReference: cs.ID,
			PaymentIntent:    cs.PaymentIntent,
		})

	case stripe.EventPaymentIntentPaymentFailed:
		// the checkout session stays open after a decline
		return "attempt_declined", nil
	}

	return "ignored", nil
}

// eventTypeLabel bounds the metric label to the event types this service handles.
func eventTypeLabel(eventType string) string {
	switch eventType {
	case stripe.EventCheckoutSessionCompleted,
		stripe.EventCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventCheckoutSessionAsyncPaymentFailed,
		stripe.EventCheckoutSessionExpired,
		stripe.EventPaymentIntentSucceeded,
		stripe.EventPaymentIntentPaymentFailed:
		return eventType
	}

	return "other"
}
