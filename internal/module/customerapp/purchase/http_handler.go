package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-fulfillment/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type HTTPHandler struct {
	Validate        *validator.Validate
	PurchaseUseCase PurchaseUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, purchaseUseCase PurchaseUseCase) {
	handler := &HTTPHandler{
		Validate:        validate,
		PurchaseUseCase: purchaseUseCase,
	}

	router.HandleFunc("/tm-fulfillment/v1/customerapp/purchases", publicMiddleware.SetRouteChain(handler.PlacePurchase, customerSession.Optional)).Methods(http.MethodPost)
	router.HandleFunc("/tm-fulfillment/v1/customerapp/purchases", publicMiddleware.SetRouteChain(handler.GetManyPurchase, customerSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/tm-fulfillment/v1/customerapp/purchases/{id}", publicMiddleware.SetRouteChain(handler.GetPurchase, customerSession.Verify)).Methods(http.MethodGet)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) []string {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	errMessages := make([]string, len(errorFields))
	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Namespace(), errorField.Value())
	}

	return errMessages
}

func writeError(w http.ResponseWriter, err error) {
	ae := errors.Destruct(err)
	response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
		Status:  ae.Status,
		Message: ae.Message,
		Errors:  ae.List(),
	})
}

func writeBadRequest(w http.ResponseWriter, errs []string) {
	response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
		Status:  status.BAD_REQUEST,
		Message: strings.Join(errs, ", "),
		Errors:  errs,
	})
}

func (handler HTTPHandler) PlacePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := PlacePurchaseRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})

		return
	}

	if errs := handler.validate(ctx, req); len(errs) > 0 {
		writeBadRequest(w, errs)
		return
	}

	resp, err := handler.PurchaseUseCase.PlacePurchase(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: "purchase has been successfully placed",
		Data:    resp,
	})
}

func (handler HTTPHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := handler.PurchaseUseCase.GetPurchase(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "purchase's properties",
		Data:    resp,
	})
}

func (handler HTTPHandler) GetManyPurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qs := r.URL.Query()

	req := GetManyPurchaseRequest{Page: 1, Size: 10}
	if v := qs.Get("page"); v != "" {
		req.Page, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := qs.Get("size"); v != "" {
		req.Size, _ = strconv.ParseInt(v, 10, 64)
	}

	if errs := handler.validate(ctx, req); len(errs) > 0 {
		writeBadRequest(w, errs)
		return
	}

	resp, err := handler.PurchaseUseCase.GetManyPurchase(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "list of purchases",
		Data:    resp.Purchases,
		Meta:    resp.Pagination,
	})
}
