package purchasable

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type Registry interface {
	Resolve(ctx context.Context, ref Reference, tx *sql.Tx) (Purchasable, error)
}

type registry struct {
	resolvers map[Kind]Resolver
}

func NewRegistry(resolvers map[Kind]Resolver) Registry {
	return &registry{
		resolvers: resolvers,
	}
}

// Resolve implements Registry.
func (r *registry) Resolve(ctx context.Context, ref Reference, tx *sql.Tx) (Purchasable, error) {
	resolver, ok := r.resolvers[ref.Kind]
	if !ok {
		return Purchasable{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, fmt.Sprintf("purchasable kind '%s' is not supported", ref.Kind))
	}

	return resolver.FindByID(ctx, ref.ID, tx)
}
