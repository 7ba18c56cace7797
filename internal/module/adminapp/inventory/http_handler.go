package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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
	Validate         *validator.Validate
	InventoryUseCase InventoryUseCase
}

func InitHTTPHandler(router *mux.Router, adminSession *middleware.AdminSession, validate *validator.Validate, inventoryUseCase InventoryUseCase) {
	handler := &HTTPHandler{
		Validate:         validate,
		InventoryUseCase: inventoryUseCase,
	}

	router.HandleFunc("/tm-fulfillment/v1/adminapp/inventory-lines", publicMiddleware.SetRouteChain(handler.CreateInventoryLine, adminSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tm-fulfillment/v1/adminapp/inventory-lines/{id}", publicMiddleware.SetRouteChain(handler.DeleteInventoryLine, adminSession.Verify)).Methods(http.MethodDelete)
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

func (handler HTTPHandler) CreateInventoryLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CreateInventoryLineRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
			Errors:  []string{err.Error()},
		})

		return
	}

	if errs := handler.validate(ctx, req); len(errs) > 0 {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: strings.Join(errs, ", "),
			Errors:  errs,
		})

		return
	}

	resp, err := handler.InventoryUseCase.CreateInventoryLine(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
			Errors:  ae.List(),
		})

		return
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: "inventory line has been successfully created",
		Data:    resp,
	})
}

func (handler HTTPHandler) DeleteInventoryLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.InventoryUseCase.DeleteInventoryLine(ctx, mux.Vars(r)["id"]); err != nil {
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
		Message: "inventory line has been successfully deleted",
	})
}
