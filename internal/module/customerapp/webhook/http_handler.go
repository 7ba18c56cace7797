package webhook

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

const maxPayloadBytes = 65536

type HTTPHandler struct {
	WebhookUseCase WebhookUseCase
}

func InitHTTPHandler(router *mux.Router, webhookUseCase WebhookUseCase) {
	handler := &HTTPHandler{
		WebhookUseCase: webhookUseCase,
	}

	router.HandleFunc("/tm-fulfillment/v1/customerapp/payments/webhook", handler.ReceiveEvent).Methods(http.MethodPost)
}

func (handler HTTPHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		response.JSON(w, http.StatusRequestEntityTooLarge, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})

		return
	}

	if err := handler.WebhookUseCase.HandleEvent(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
			Errors:  ae.List(),
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "event received",
	})
}
