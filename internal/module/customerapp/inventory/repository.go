package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type InventoryLineRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (InventoryLine, error)
	FindAvailableByPurchasable(ctx context.Context, ref purchasable.Reference, tx *sql.Tx) ([]InventoryLine, error)
	// Decrement takes n units iff at least n are available.
	Decrement(ctx context.Context, ID string, n int64, tx *sql.Tx) error
	Increment(ctx context.Context, ID string, n int64, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type inventoryLineRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewInventoryLineRepository(logger *logrus.Logger, db *sql.DB) InventoryLineRepository {
	return &inventoryLineRepository{
		logger: logger,
		db:     db,
	}
}

const inventoryLineColumns = `
	id, purchasable_kind, purchasable_id, name, available_qty, unit_price, currency,
	min_per_order, max_per_order, selling_start, selling_end, pay_what_you_want, minimum_price,
	requires_authenticated_buyer, soft_deleted, created_at, updated_at
`

func scanInventoryLine(row scanner) (InventoryLine, error) {
	var data InventoryLine
	var kind string
	var maxPerOrder sql.NullInt64
	var sellingStart, sellingEnd sql.NullTime

	err := row.Scan(
		&data.ID, &kind, &data.PurchasableID, &data.Name, &data.AvailableQty, &data.UnitPrice, &data.Currency,
		&data.MinPerOrder, &maxPerOrder, &sellingStart, &sellingEnd, &data.PayWhatYouWant, &data.MinimumPrice,
		&data.RequiresAuthenticatedBuyer, &data.SoftDeleted, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		return InventoryLine{}, err
	}

	data.PurchasableKind = purchasable.Kind(kind)
	if maxPerOrder.Valid {
		data.MaxPerOrder = &maxPerOrder.Int64
	}
	if sellingStart.Valid {
		data.SellingStart = &sellingStart.Time
	}
	if sellingEnd.Valid {
		data.SellingEnd = &sellingEnd.Time
	}

	return data, nil
}

// FindByID implements InventoryLineRepository. Soft deleted lines are
// returned too, historical items and refunds still reference them.
func (r *inventoryLineRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (InventoryLine, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + inventoryLineColumns + `
		FROM inventory_line
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return InventoryLine{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting inventory line's properties")
	}
	defer stmt.Close()

	data, err := scanInventoryLine(stmt.QueryRowContext(ctx, ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return InventoryLine{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("inventory line's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return InventoryLine{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting inventory line's properties")
	}

	return data, nil
}

// FindAvailableByPurchasable implements InventoryLineRepository.
func (r *inventoryLineRepository) FindAvailableByPurchasable(ctx context.Context, ref purchasable.Reference, tx *sql.Tx) ([]InventoryLine, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + inventoryLineColumns + `
		FROM inventory_line
		WHERE
			purchasable_kind = $1
		AND
			purchasable_id = $2
		AND
			soft_deleted = false
		ORDER BY created_at ASC
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of inventory line's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, string(ref.Kind), ref.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of inventory line's properties")
	}
	defer rows.Close()

	var data = make([]InventoryLine, 0)
	for rows.Next() {
		l, err := scanInventoryLine(rows)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of inventory line's properties")
		}
		data = append(data, l)
	}

	return data, nil
}

// Decrement implements InventoryLineRepository.
func (r *inventoryLineRepository) Decrement(ctx context.Context, ID string, n int64, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE inventory_line
		SET
			available_qty = available_qty - $1,
			updated_at = $2
		WHERE
			id = $3
		AND
			available_qty >= $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating inventory line's quantity")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, n, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating inventory line's quantity")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating inventory line's quantity")
	}

	if affected == 0 {
		return errors.New(http.StatusConflict, status.INSUFFICIENT_QUANTITY, fmt.Sprintf("inventory line '%s' does not have %d units left", ID, n))
	}

	return nil
}

// Increment implements InventoryLineRepository.
func (r *inventoryLineRepository) Increment(ctx context.Context, ID string, n int64, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE inventory_line
		SET
			available_qty = available_qty + $1,
			updated_at = $2
		WHERE
			id = $3
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating inventory line's quantity")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, n, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating inventory line's quantity")
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("inventory line's properties with id '%s' is not found", ID))
	}

	return nil
}
