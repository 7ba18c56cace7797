package inventory

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/internal/module/customerapp/purchasable"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

var lineColumns = []string{
	"id", "purchasable_kind", "purchasable_id", "name", "available_qty", "unit_price", "currency",
	"min_per_order", "max_per_order", "selling_start", "selling_end", "pay_what_you_want", "minimum_price",
	"requires_authenticated_buyer", "soft_deleted", "created_at", "updated_at",
}

func newRepository(t *testing.T) (InventoryLineRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewInventoryLineRepository(logger, db), mock
}

func TestFindByID(t *testing.T) {
	repo, mock := newRepository(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectPrepare(regexp.QuoteMeta("FROM inventory_line")).
		ExpectQuery().
		WithArgs("L1").
		WillReturnRows(sqlmock.NewRows(lineColumns).AddRow(
			"L1", "event", "EV1", "Gold", int64(5), "50000", "IDR",
			int64(2), int64(4), nil, now, false, nil,
			true, false, now, now,
		))

	l, err := repo.FindByID(context.Background(), "L1", nil)
	require.NoError(t, err)

	assert.Equal(t, purchasable.KindEvent, l.PurchasableKind)
	assert.EqualValues(t, 5, l.AvailableQty)
	assert.True(t, decimal.NewFromInt(50000).Equal(l.UnitPrice))
	if assert.NotNil(t, l.MaxPerOrder) {
		assert.EqualValues(t, 4, *l.MaxPerOrder)
	}
	assert.Nil(t, l.SellingStart)
	assert.NotNil(t, l.SellingEnd)
	assert.False(t, l.MinimumPrice.Valid)
	assert.True(t, l.RequiresAuthenticatedBuyer)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock := newRepository(t)

	mock.ExpectPrepare(regexp.QuoteMeta("FROM inventory_line")).
		ExpectQuery().
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(lineColumns))

	_, err := repo.FindByID(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, status.NOT_FOUND))
}

func TestDecrement(t *testing.T) {
	testCases := []struct {
		name     string
		affected int64
		wantErr  string
	}{
		{name: "enough units", affected: 1},
		{name: "not enough units", affected: 0, wantErr: status.INSUFFICIENT_QUANTITY},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newRepository(t)

			mock.ExpectPrepare(regexp.QuoteMeta("available_qty >= $1")).
				ExpectExec().
				WithArgs(int64(3), sqlmock.AnyArg(), "L1").
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := repo.Decrement(context.Background(), "L1", 3, nil)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.HasStatus(err, tc.wantErr))
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIncrement(t *testing.T) {
	repo, mock := newRepository(t)

	mock.ExpectPrepare(regexp.QuoteMeta("available_qty = available_qty + $1")).
		ExpectExec().
		WithArgs(int64(1), sqlmock.AnyArg(), "L1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Increment(context.Background(), "L1", 1, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
