package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/jwt"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/response"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type TokenParser interface {
	Parse(ctx context.Context, tokenString string) (jwt.Claims, error)
}

type CustomerSession struct {
	jsonWebToken TokenParser
	session      session.Session
}

func NewCustomerSessionMiddleware(jsonWebToken TokenParser, session session.Session) *CustomerSession {
	return &CustomerSession{
		jsonWebToken: jsonWebToken,
		session:      session,
	}
}

func bearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(authorization, "Bearer ")
	if !found {
		return ""
	}

	return strings.TrimSpace(token)
}

func resolveAccount(ctx context.Context, parser TokenParser, store session.Session, token string) (session.Account, error) {
	claims, err := parser.Parse(ctx, token)
	if err != nil {
		return session.Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid token")
	}

	return store.Get(ctx, claims.ID)
}

func writeError(w http.ResponseWriter, err error) {
	ae := errors.Destruct(err)
	response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
		Status:  ae.Status,
		Message: ae.Message,
		Errors:  ae.List(),
	})
}

// Verify rejects requests without a valid customer session.
func (m *CustomerSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			writeError(w, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "missing bearer token"))
			return
		}

		acc, err := resolveAccount(ctx, m.jsonWebToken, m.session, token)
		if err != nil {
			writeError(w, err)
			return
		}

		next(w, r.WithContext(session.SetAccountToCtx(ctx, acc)))
	}
}

// Optional attaches the account when a valid session is presented and lets
// guests through otherwise. A token that is present but invalid is rejected.
func (m *CustomerSession) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			next(w, r)
			return
		}

		acc, err := resolveAccount(ctx, m.jsonWebToken, m.session, token)
		if err != nil {
			writeError(w, err)
			return
		}

		next(w, r.WithContext(session.SetAccountToCtx(ctx, acc)))
	}
}
