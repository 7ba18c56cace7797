package purchasable

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

// Resolver loads the fields fulfillment needs from one catalog table.
type Resolver interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Purchasable, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type catalogRepository struct {
	logger *logrus.Logger
	db     *sql.DB
	kind   Kind
	table  string
}

// NewCatalogRepository builds a Resolver over table. table is a trusted
// constant, it is interpolated into the query.
func NewCatalogRepository(logger *logrus.Logger, db *sql.DB, kind Kind, table string) Resolver {
	return &catalogRepository{
		logger: logger,
		db:     db,
		kind:   kind,
		table:  table,
	}
}

// FindByID implements Resolver.
func (r *catalogRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Purchasable, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT
			id, name
		FROM %s
		WHERE
			id = $1
		LIMIT 1
	`, r.table)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchasable{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, fmt.Sprintf("an error occurred while getting %s's properties", r.kind))
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	data := Purchasable{Kind: r.kind}
	err = row.Scan(&data.ID, &data.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return Purchasable{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("%s's properties with id '%s' is not found", r.kind, ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchasable{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, fmt.Sprintf("an error occurred while getting %s's properties", r.kind))
	}

	return data, nil
}
