package session

import (
	"context"
	"net/http"

	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Account struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type accountCtxKey struct{}

func SetAccountToCtx(ctx context.Context, acc Account) context.Context {
	return context.WithValue(ctx, accountCtxKey{}, acc)
}

func GetAccountFromCtx(ctx context.Context) (Account, error) {
	acc, ok := ctx.Value(accountCtxKey{}).(Account)
	if !ok {
		return Account{}, errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "session is not found")
	}

	return acc, nil
}

// LookupAccountFromCtx is GetAccountFromCtx for routes where a session is optional.
func LookupAccountFromCtx(ctx context.Context) (Account, bool) {
	acc, ok := ctx.Value(accountCtxKey{}).(Account)
	return acc, ok
}
