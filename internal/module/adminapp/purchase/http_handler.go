package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchase"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-fulfillment/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// Refunder is the refund side of the purchase use case.
type Refunder interface {
	RefundItem(ctx context.Context, purchaseID, itemID string, req purchase.RefundRequest) (purchase.PurchaseResponse, error)
	RefundPurchase(ctx context.Context, purchaseID string, req purchase.RefundRequest) (purchase.PurchaseResponse, error)
}

type HTTPHandler struct {
	Validate *validator.Validate
	Refunder Refunder
}

func InitHTTPHandler(router *mux.Router, adminSession *middleware.AdminSession, validate *validator.Validate, refunder Refunder) {
	handler := &HTTPHandler{
		Validate: validate,
		Refunder: refunder,
	}

	router.HandleFunc("/tm-fulfillment/v1/adminapp/purchases/{id}/refund", publicMiddleware.SetRouteChain(handler.RefundPurchase, adminSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tm-fulfillment/v1/adminapp/purchases/{id}/items/{item_id}/refund", publicMiddleware.SetRouteChain(handler.RefundItem, adminSession.Verify)).Methods(http.MethodPost)
}

func writeError(w http.ResponseWriter, err error) {
	ae := errors.Destruct(err)
	response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
		Status:  ae.Status,
		Message: ae.Message,
		Errors:  ae.List(),
	})
}

// decode reads an optional refund body. An empty body means no reason.
func (handler HTTPHandler) decode(w http.ResponseWriter, r *http.Request) (purchase.RefundRequest, bool) {
	req := purchase.RefundRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})

		return req, false
	}

	if err := handler.Validate.StructCtx(r.Context(), req); err != nil {
		errs := []string{err.Error()}
		if errorFields, ok := err.(validator.ValidationErrors); ok {
			errs = make([]string, len(errorFields))
			for k, errorField := range errorFields {
				errs[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Namespace(), errorField.Value())
			}
		}

		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: strings.Join(errs, ", "),
			Errors:  errs,
		})

		return req, false
	}

	return req, true
}

func (handler HTTPHandler) RefundPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := handler.decode(w, r)
	if !ok {
		return
	}

	resp, err := handler.Refunder.RefundPurchase(ctx, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "purchase has been successfully refunded",
		Data:    resp,
	})
}

func (handler HTTPHandler) RefundItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := handler.decode(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)

	resp, err := handler.Refunder.RefundItem(ctx, vars["id"], vars["item_id"], req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "purchased item has been successfully refunded",
		Data:    resp,
	})
}
