package purchase

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

type PurchaseRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, p Purchase, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Purchase, error)
	// FindByPaymentReference matches either the checkout session or the payment intent.
	FindByPaymentReference(ctx context.Context, reference string, tx *sql.Tx) (Purchase, error)
	FindMany(ctx context.Context, buyerID int64, offset, limit int64, tx *sql.Tx) ([]Purchase, error)
	Count(ctx context.Context, buyerID int64, tx *sql.Tx) (int64, error)
	UpdateCheckout(ctx context.Context, ID string, paymentReference, checkoutURL string, updatedAt time.Time, tx *sql.Tx) error

	// The Mark* transitions are conditional on the current state and report
	// whether this call performed the transition.
	MarkPaid(ctx context.Context, ID string, paymentIntent *string, updatedAt time.Time, tx *sql.Tx) (bool, error)
	MarkFailed(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error)
	MarkRefunded(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error)
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

type purchaseRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPurchaseRepository(logger *logrus.Logger, db *sql.DB) PurchaseRepository {
	return &purchaseRepository{
		logger: logger,
		db:     db,
	}
}

const purchaseColumns = `
	id, buyer_id, buyer_email, purchasable_kind, purchasable_id, state, currency, total_amount,
	payment_reference, payment_intent, checkout_url, created_at, updated_at
`

func scanPurchase(row scanner) (Purchase, error) {
	var data Purchase
	var kind string
	var buyerID sql.NullInt64
	var paymentReference, paymentIntent, checkoutURL sql.NullString

	err := row.Scan(
		&data.ID, &buyerID, &data.BuyerEmail, &kind, &data.PurchasableID, &data.State, &data.Currency, &data.TotalAmount,
		&paymentReference, &paymentIntent, &checkoutURL, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		return Purchase{}, err
	}

	data.PurchasableKind = purchasable.Kind(kind)
	if buyerID.Valid {
		data.BuyerID = &buyerID.Int64
	}
	if paymentReference.Valid {
		data.PaymentReference = &paymentReference.String
	}
	if paymentIntent.Valid {
		data.PaymentIntent = &paymentIntent.String
	}
	if checkoutURL.Valid {
		data.CheckoutURL = &checkoutURL.String
	}

	return data, nil
}

// BeginTx implements PurchaseRepository.
func (r *purchaseRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements PurchaseRepository.
func (r *purchaseRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements PurchaseRepository.
func (r *purchaseRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

// Save implements PurchaseRepository.
func (r *purchaseRepository) Save(ctx context.Context, p Purchase, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO purchase
		(
			id, buyer_id, buyer_email, purchasable_kind, purchasable_id,
			state, currency, total_amount, payment_reference, payment_intent,
			checkout_url, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving purchase's properties")
	}
	defer stmt.Close()

	var buyerID sql.NullInt64
	if p.BuyerID != nil {
		buyerID = sql.NullInt64{Int64: *p.BuyerID, Valid: true}
	}

	_, err = stmt.ExecContext(ctx,
		p.ID, buyerID, p.BuyerEmail, string(p.PurchasableKind), p.PurchasableID,
		p.State, p.Currency, p.TotalAmount, nullString(p.PaymentReference), nullString(p.PaymentIntent),
		nullString(p.CheckoutURL), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving purchase's properties")
	}

	return nil
}

// FindByID implements PurchaseRepository.
func (r *purchaseRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Purchase, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchase
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchase{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchase's properties")
	}
	defer stmt.Close()

	data, err := scanPurchase(stmt.QueryRowContext(ctx, ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Purchase{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("purchase's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchase{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchase's properties")
	}

	return data, nil
}

// FindByPaymentReference implements PurchaseRepository.
func (r *purchaseRepository) FindByPaymentReference(ctx context.Context, reference string, tx *sql.Tx) (Purchase, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchase
		WHERE
			payment_reference = $1
		OR
			payment_intent = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchase{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchase's properties")
	}
	defer stmt.Close()

	data, err := scanPurchase(stmt.QueryRowContext(ctx, reference))
	if err != nil {
		if err == sql.ErrNoRows {
			return Purchase{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("purchase's properties with payment reference '%s' is not found", reference))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Purchase{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting purchase's properties")
	}

	return data, nil
}

// FindMany implements PurchaseRepository.
func (r *purchaseRepository) FindMany(ctx context.Context, buyerID int64, offset int64, limit int64, tx *sql.Tx) ([]Purchase, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchase
		WHERE
			buyer_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2
		LIMIT $3
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchase's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, buyerID, offset, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchase's properties")
	}
	defer rows.Close()

	var data = make([]Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of purchase's properties")
		}
		data = append(data, p)
	}

	return data, nil
}

// Count implements PurchaseRepository.
func (r *purchaseRepository) Count(ctx context.Context, buyerID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT count(id)
		FROM purchase
		WHERE
			buyer_id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting purchase's properties")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, buyerID).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting purchase's properties")
	}

	return count, nil
}

// UpdateCheckout implements PurchaseRepository.
func (r *purchaseRepository) UpdateCheckout(ctx context.Context, ID string, paymentReference, checkoutURL string, updatedAt time.Time, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE purchase
		SET
			payment_reference = $1,
			checkout_url = $2,
			updated_at = $3
		WHERE id = $4
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchase's properties")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, paymentReference, checkoutURL, updatedAt, ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchase's properties")
	}

	return nil
}

// MarkPaid implements PurchaseRepository.
func (r *purchaseRepository) MarkPaid(ctx context.Context, ID string, paymentIntent *string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	query := `
		UPDATE purchase
		SET
			state = $1,
			payment_intent = COALESCE($2, payment_intent),
			updated_at = $3
		WHERE
			id = $4
		AND
			state = $5
	`

	return r.transition(ctx, query, tx, StatePaid, nullString(paymentIntent), updatedAt, ID, StatePending)
}

// MarkFailed implements PurchaseRepository.
func (r *purchaseRepository) MarkFailed(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	query := `
		UPDATE purchase
		SET
			state = $1,
			updated_at = $2
		WHERE
			id = $3
		AND
			state = $4
	`

	return r.transition(ctx, query, tx, StateFailed, updatedAt, ID, StatePending)
}

// MarkRefunded implements PurchaseRepository.
func (r *purchaseRepository) MarkRefunded(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) (bool, error) {
	query := `
		UPDATE purchase
		SET
			state = $1,
			updated_at = $2
		WHERE
			id = $3
		AND
			state = $4
	`

	return r.transition(ctx, query, tx, StateRefunded, updatedAt, ID, StatePaid)
}

func (r *purchaseRepository) transition(ctx context.Context, query string, tx *sql.Tx, args ...interface{}) (bool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchase's state")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchase's state")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating purchase's state")
	}

	return affected > 0, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}
