package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type StripeRepository interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	CreateRefund(ctx context.Context, req RefundRequest, idempotencyKey string) (Refund, error)
}

type stripeRepository struct {
	baseURL   string
	secretKey string
	logger    *logrus.Logger
	hc        *http.Client
}

func NewStripeRepository(baseURL string, secretKey string, logger *logrus.Logger, hc *http.Client) StripeRepository {
	return &stripeRepository{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		logger:    logger,
		hc:        hc,
	}
}

// CreateCheckoutSession implements StripeRepository.
func (r *stripeRepository) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.PurchaseID)
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata["+MetadataPurchaseID+"]", req.PurchaseID)
	form.Set("payment_intent_data[metadata]["+MetadataPurchaseID+"]", req.PurchaseID)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	currency := strings.ToLower(req.Currency)
	for k, item := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", k)
		form.Set(prefix+"[quantity]", strconv.FormatInt(item.Quantity, 10))
		form.Set(prefix+"[price_data][currency]", currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
	}

	var resp CheckoutSession
	if err := r.post(ctx, "/v1/checkout/sessions", form, "", &resp); err != nil {
		return CheckoutSession{}, errors.New(http.StatusBadGateway, status.BAD_GATEWAY, "an error occurred while creating checkout session through stripe")
	}

	return resp, nil
}

// CreateRefund implements StripeRepository.
func (r *stripeRepository) CreateRefund(ctx context.Context, req RefundRequest, idempotencyKey string) (Refund, error) {
	form := url.Values{}
	if req.PaymentIntent != "" {
		form.Set("payment_intent", req.PaymentIntent)
	}
	if req.Charge != "" {
		form.Set("charge", req.Charge)
	}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	if req.Reason != "" {
		form.Set("reason", req.Reason)
	}
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var resp Refund
	if err := r.post(ctx, "/v1/refunds", form, idempotencyKey, &resp); err != nil {
		return Refund{}, errors.New(http.StatusBadGateway, status.BAD_GATEWAY, "an error occurred while creating refund through stripe")
	}

	return resp, nil
}

func (r *stripeRepository) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out interface{}) error {
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	hr.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	hr.Header.Add("Accept", "application/json")
	hr.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.secretKey))
	if idempotencyKey != "" {
		hr.Header.Add("Idempotency-Key", idempotencyKey)
	}

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return err
	}
	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		var ae apiError
		_ = json.Unmarshal(respBody, &ae)
		err := fmt.Errorf("stripe responded %d: %s %s", hresp.StatusCode, ae.Error.Type, ae.Error.Message)
		r.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"path": path,
			"code": ae.Error.Code,
		}).Error()
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return err
	}

	return nil
}
