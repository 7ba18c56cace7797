package purchase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type purchaseUseCaseMock struct {
	PurchaseUseCase
	placed  []PlacePurchaseRequest
	listed  []GetManyPurchaseRequest
	fetched []string
	err     error
}

func (m *purchaseUseCaseMock) PlacePurchase(ctx context.Context, req PlacePurchaseRequest) (PurchaseResponse, error) {
	m.placed = append(m.placed, req)
	return PurchaseResponse{ID: "TP1", State: StatePending}, m.err
}

func (m *purchaseUseCaseMock) GetPurchase(ctx context.Context, ID string) (PurchaseResponse, error) {
	m.fetched = append(m.fetched, ID)
	return PurchaseResponse{ID: ID}, m.err
}

func (m *purchaseUseCaseMock) GetManyPurchase(ctx context.Context, req GetManyPurchaseRequest) (GetManyPurchaseResponse, error) {
	m.listed = append(m.listed, req)
	return GetManyPurchaseResponse{}, m.err
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.RESTEnvelope {
	t.Helper()

	var env response.RESTEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return env
}

func TestHTTPHandlerPlacePurchase(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		err        error
		wantCode   int
		wantStatus string
		wantCalls  int
	}

	testCases := []testCase{
		{
			name:       "placed",
			body:       `{"purchasable":{"kind":"event","id":"EV1"},"items":[{"inventory_line_id":"ga","quantity":2}]}`,
			wantCode:   http.StatusCreated,
			wantStatus: status.CREATED,
			wantCalls:  1,
		},
		{
			name:       "malformed body",
			body:       `{"items":`,
			wantCode:   http.StatusUnprocessableEntity,
			wantStatus: status.UNPROCESSABLE_ENTITY,
		},
		{
			name:       "no items",
			body:       `{"purchasable":{"kind":"event","id":"EV1"},"items":[]}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: status.BAD_REQUEST,
		},
		{
			name:       "unknown purchasable kind",
			body:       `{"purchasable":{"kind":"boat","id":"B1"},"items":[{"inventory_line_id":"ga","quantity":1}]}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: status.BAD_REQUEST,
		},
		{
			name:       "invalid guest email",
			body:       `{"purchasable":{"kind":"event","id":"EV1"},"guest_email":"nope","items":[{"inventory_line_id":"ga","quantity":1}]}`,
			wantCode:   http.StatusBadRequest,
			wantStatus: status.BAD_REQUEST,
		},
		{
			name:       "use case rejection",
			body:       `{"purchasable":{"kind":"event","id":"EV1"},"items":[{"inventory_line_id":"ga","quantity":9}]}`,
			err:        errors.New(http.StatusConflict, status.INSUFFICIENT_QUANTITY, "not enough"),
			wantCode:   http.StatusConflict,
			wantStatus: status.INSUFFICIENT_QUANTITY,
			wantCalls:  1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &purchaseUseCaseMock{err: tc.err}
			handler := HTTPHandler{Validate: validator.New(), PurchaseUseCase: uc}

			req := httptest.NewRequest(http.MethodPost, "/tm-fulfillment/v1/customerapp/purchases", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.PlacePurchase(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantStatus, decodeEnvelope(t, rec).Status)
			assert.Len(t, uc.placed, tc.wantCalls)
		})
	}
}

func TestHTTPHandlerGetPurchase(t *testing.T) {
	uc := &purchaseUseCaseMock{}
	handler := HTTPHandler{Validate: validator.New(), PurchaseUseCase: uc}

	req := httptest.NewRequest(http.MethodGet, "/tm-fulfillment/v1/customerapp/purchases/TP9", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "TP9"})
	rec := httptest.NewRecorder()

	handler.GetPurchase(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"TP9"}, uc.fetched)
}

func TestHTTPHandlerGetManyPurchase(t *testing.T) {
	type testCase struct {
		name     string
		query    string
		wantCode int
		wantReq  []GetManyPurchaseRequest
	}

	testCases := []testCase{
		{
			name:     "defaults",
			wantCode: http.StatusOK,
			wantReq:  []GetManyPurchaseRequest{{Page: 1, Size: 10}},
		},
		{
			name:     "explicit page",
			query:    "?page=3&size=20",
			wantCode: http.StatusOK,
			wantReq:  []GetManyPurchaseRequest{{Page: 3, Size: 20}},
		},
		{
			name:     "size over the limit",
			query:    "?size=500",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &purchaseUseCaseMock{}
			handler := HTTPHandler{Validate: validator.New(), PurchaseUseCase: uc}

			req := httptest.NewRequest(http.MethodGet, "/tm-fulfillment/v1/customerapp/purchases"+tc.query, nil)
			rec := httptest.NewRecorder()

			handler.GetManyPurchase(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantReq, uc.listed)
		})
	}
}
