package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/inventory"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type InventoryLineRepository interface {
	Save(ctx context.Context, l inventory.InventoryLine, tx *sql.Tx) error
	SoftDelete(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
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

// Save implements InventoryLineRepository.
func (r *inventoryLineRepository) Save(ctx context.Context, l inventory.InventoryLine, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO inventory_line
		(
			id, purchasable_kind, purchasable_id, name, available_qty, unit_price, currency,
			min_per_order, max_per_order, selling_start, selling_end, pay_what_you_want, minimum_price,
			requires_authenticated_buyer, soft_deleted, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving inventory line's properties")
	}
	defer stmt.Close()

	var maxPerOrder sql.NullInt64
	if l.MaxPerOrder != nil {
		maxPerOrder = sql.NullInt64{Int64: *l.MaxPerOrder, Valid: true}
	}

	var sellingStart, sellingEnd sql.NullTime
	if l.SellingStart != nil {
		sellingStart = sql.NullTime{Time: *l.SellingStart, Valid: true}
	}
	if l.SellingEnd != nil {
		sellingEnd = sql.NullTime{Time: *l.SellingEnd, Valid: true}
	}

	_, err = stmt.ExecContext(
		ctx,
		l.ID, string(l.PurchasableKind), l.PurchasableID, l.Name, l.AvailableQty, l.UnitPrice, l.Currency,
		l.MinPerOrder, maxPerOrder, sellingStart, sellingEnd, l.PayWhatYouWant, l.MinimumPrice,
		l.RequiresAuthenticatedBuyer, l.SoftDeleted, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving inventory line's properties")
	}

	return nil
}

// SoftDelete implements InventoryLineRepository. The row stays so purchased
// items keep pointing at it.
func (r *inventoryLineRepository) SoftDelete(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE inventory_line
		SET
			soft_deleted = true,
			updated_at = $1
		WHERE
			id = $2
		AND
			soft_deleted = false
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting inventory line's properties")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, updatedAt, ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting inventory line's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while deleting inventory line's properties")
	}

	if affected == 0 {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("inventory line's properties with id '%s' is not found", ID))
	}

	return nil
}
