package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

type PurchasedItemRepository interface {
	Save(ctx context.Context, item PurchasedItem, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (PurchasedItem, error)
	FindManyByPurchaseID(ctx context.Context, purchaseID string, tx *sql.Tx) ([]PurchasedItem, error)
	CountByState(ctx context.Context, purchaseID string, state string, tx *sql.Tx) (int64, error)
	MarkPaidByPurchaseID(ctx context.Context, purchaseID string, updatedAt time.Time, tx *sql.Tx) error
	// MarkRefunded flips a paid item to refunded and reports whether this call did it.
	MarkRefunded(ctx context.Context, ID string, refundReference, reason *string, refundedAt time.Time, tx *sql.Tx) (bool, error)
}

type purchasedItemRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPurchasedItemRepository(logger *logrus.Logger, db *sql.DB) PurchasedItemRepository {
	return &purchasedItemRepository{
		logger: logger,
		db:     db,
	}
}

const purchasedItemColumns = `
	id, purchase_id, inventory_line_id, name, state, price, currency,
	refunded_at, refund_reference, refund_reason, created_at, updated_at
`

func scanPurchasedItem(row scanner) (PurchasedItem, error) {
	var data PurchasedItem
	var refundedAt sql.NullTime
	var refundReference, refundReason sql.NullString

	err := row.Scan(
		&data.ID, &data.PurchaseID, &data.InventoryLineID, &data.Name, &data.State, &data.Price, &data.Currency,
		&refundedAt, &refundReference, &refundReason, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		return PurchasedItem{}, err
	}

	if refundedAt.Valid {
		data.RefundedAt = &refundedAt.Time
	}
	if refundReference.Valid {
		data.RefundReference = &refundReference.String
	}
	if refundReason.Valid {
		data.RefundReason = &refundReason.String
	}

	return data, nil
}

// Save implements PurchasedItemRepository.
func (r *purchasedItemRepository) Save(ctx context.Context, item PurchasedItem, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO purchased_item
		(
			id, purchase_id, inventory_line_id, name, state, price, currency, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving purchased item's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		item.ID, item.PurchaseID, item.InventoryLineID, item.Name, item.State, item.Price, item.Currency, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving purchased item's properties")
	}

	return nil
}

// FindByID implements PurchasedItemRepository.
func (r *purchasedItemRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (PurchasedItem, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + purchasedItemColumns + `
		FROM purchased_item
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return PurchasedItem{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchased item's properties")
	}
	defer stmt.Close()

	data, err := scanPurchasedItem(stmt.QueryRowContext(ctx, ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return PurchasedItem{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("purchased item's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return PurchasedItem{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchased item's properties")
	}

	return data, nil
}

// FindManyByPurchaseID implements PurchasedItemRepository.
func (r *purchasedItemRepository) FindManyByPurchaseID(ctx context.Context, purchaseID string, tx *sql.Tx) ([]PurchasedItem, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + purchasedItemColumns + `
		FROM purchased_item
		WHERE
			purchase_id = $1
		ORDER BY inventory_line_id ASC, id ASC
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchased item's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, purchaseID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchased item's properties")
	}
	defer rows.Close()

	var data = make([]PurchasedItem, 0)
	for rows.Next() {
		item, err := scanPurchasedItem(rows)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchased item's properties")
		}
		data = append(data, item)
	}

	return data, nil
}

// CountByState implements PurchasedItemRepository.
func (r *purchasedItemRepository) CountByState(ctx context.Context, purchaseID string, state string, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT count(id)
		FROM purchased_item
		WHERE
			purchase_id = $1
		AND
			state = $2
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting purchased item's properties")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, purchaseID, state).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting purchased item's properties")
	}

	return count, nil
}

// MarkPaidByPurchaseID implements PurchasedItemRepository.
func (r *purchasedItemRepository) MarkPaidByPurchaseID(ctx context.Context, purchaseID string, updatedAt time.Time, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE purchased_item
		SET
			state = $1,
			updated_at = $2
		WHERE
			purchase_id = $3
		AND
			state = $4
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchased item's state")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, StatePaid, updatedAt, purchaseID, StatePending); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchased item's state")
	}

	return nil
}

// MarkRefunded implements PurchasedItemRepository.
func (r *purchasedItemRepository) MarkRefunded(ctx context.Context, ID string, refundReference, reason *string, refundedAt time.Time, tx *sql.Tx) (bool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE purchased_item
		SET
			state = $1,
			refunded_at = $2,
			refund_reference = $3,
			refund_reason = $4,
			updated_at = $2
		WHERE
			id = $5
		AND
			state = $6
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchased item's state")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, StateRefunded, refundedAt, nullString(refundReference), nullString(reason), ID, StatePaid)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchased item's state")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchased item's state")
	}

	return affected > 0, nil
}
