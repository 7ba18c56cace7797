package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/jwt"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type tokenParserMock struct {
	claims map[string]jwt.Claims
}

func (m tokenParserMock) Parse(ctx context.Context, tokenString string) (jwt.Claims, error) {
	c, ok := m.claims[tokenString]
	if !ok {
		return jwt.Claims{}, fmt.Errorf("bad token")
	}
	return c, nil
}

type sessionMock struct {
	accounts map[string]session.Account
}

func (m sessionMock) Set(ctx context.Context, sessionID string, acc session.Account, ttl time.Duration) error {
	m.accounts[sessionID] = acc
	return nil
}

func (m sessionMock) Get(ctx context.Context, sessionID string) (session.Account, error) {
	acc, ok := m.accounts[sessionID]
	if !ok {
		return session.Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is expired or invalid")
	}
	return acc, nil
}

func (m sessionMock) Delete(ctx context.Context, sessionID string) error {
	delete(m.accounts, sessionID)
	return nil
}

func claims(sessionID, role string) jwt.Claims {
	return jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{ID: sessionID}, Role: role}
}

func fixtures() (tokenParserMock, sessionMock) {
	parser := tokenParserMock{claims: map[string]jwt.Claims{
		"customer-token": claims("s-customer", session.RoleCustomer),
		"admin-token":    claims("s-admin", session.RoleAdmin),
		"stale-token":    claims("s-gone", session.RoleCustomer),
	}}

	store := sessionMock{accounts: map[string]session.Account{
		"s-customer": {ID: 1, Role: session.RoleCustomer},
		"s-admin":    {ID: 2, Role: session.RoleAdmin},
	}}

	return parser, store
}

func TestCustomerSession(t *testing.T) {
	parser, store := fixtures()
	m := NewCustomerSessionMiddleware(parser, store)

	var seen *session.Account
	next := func(w http.ResponseWriter, r *http.Request) {
		seen = nil
		if acc, ok := session.LookupAccountFromCtx(r.Context()); ok {
			seen = &acc
		}
		w.WriteHeader(http.StatusNoContent)
	}

	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		token      string
		wantCode   int
		wantAccID  int64
		wantNoAcct bool
	}{
		{name: "verify without token", handler: m.Verify(next), wantCode: http.StatusUnauthorized},
		{name: "verify with bad token", handler: m.Verify(next), token: "nope", wantCode: http.StatusUnauthorized},
		{name: "verify with expired session", handler: m.Verify(next), token: "stale-token", wantCode: http.StatusUnauthorized},
		{name: "verify with session", handler: m.Verify(next), token: "customer-token", wantCode: http.StatusNoContent, wantAccID: 1},
		{name: "optional guest", handler: m.Optional(next), wantCode: http.StatusNoContent, wantNoAcct: true},
		{name: "optional with session", handler: m.Optional(next), token: "customer-token", wantCode: http.StatusNoContent, wantAccID: 1},
		{name: "optional with bad token", handler: m.Optional(next), token: "nope", wantCode: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()

			tc.handler(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantAccID != 0 {
				if assert.NotNil(t, seen) {
					assert.Equal(t, tc.wantAccID, seen.ID)
				}
			}
			if tc.wantNoAcct {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestAdminSession(t *testing.T) {
	parser, store := fixtures()
	m := NewAdminSessionMiddleware(parser, store)

	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}

	testCases := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "no token", wantCode: http.StatusUnauthorized},
		{name: "customer", token: "customer-token", wantCode: http.StatusForbidden},
		{name: "admin", token: "admin-token", wantCode: http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()

			m.Verify(next)(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
