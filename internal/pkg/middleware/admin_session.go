package middleware

import (
	"net/http"

	"github.com/tsel-ticketmaster/tm-fulfillment/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type AdminSession struct {
	jsonWebToken TokenParser
	session      session.Session
}

func NewAdminSessionMiddleware(jsonWebToken TokenParser, session session.Session) *AdminSession {
	return &AdminSession{
		jsonWebToken: jsonWebToken,
		session:      session,
	}
}

func (m *AdminSession) Verify(next http.HandlerFunc) http.HandlerFunc {
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

		if acc.Role != session.RoleAdmin {
			writeError(w, errors.New(http.StatusForbidden, status.FORBIDDEN, "admin privilege is required"))
			return
		}

		next(w, r.WithContext(session.SetAccountToCtx(ctx, acc)))
	}
}
