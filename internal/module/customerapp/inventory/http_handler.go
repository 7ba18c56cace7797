package inventory

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-fulfillment/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type HTTPHandler struct {
	Validate         *validator.Validate
	InventoryUseCase InventoryUseCase
}

func InitHTTPHandler(router *mux.Router, validate *validator.Validate, inventoryUseCase InventoryUseCase) {
	handler := &HTTPHandler{
		Validate:         validate,
		InventoryUseCase: inventoryUseCase,
	}

	router.HandleFunc("/tm-fulfillment/v1/customerapp/purchasables/{kind}/{id}/inventory-lines", publicMiddleware.SetRouteChain(handler.GetAvailableLines)).Methods(http.MethodGet)
}

func (handler HTTPHandler) GetAvailableLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vars := mux.Vars(r)
	ref := purchasable.Reference{
		Kind: purchasable.Kind(vars["kind"]),
		ID:   vars["id"],
	}

	if err := handler.Validate.StructCtx(ctx, ref); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: "invalid purchasable reference",
			Errors:  []string{"invalid purchasable reference"},
		})

		return
	}

	resp, err := handler.InventoryUseCase.GetAvailableLines(ctx, ref)
	if err != nil {
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
		Message: "list of available inventory lines",
		Data:    resp,
	})
}
