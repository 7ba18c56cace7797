package inventory

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

func newRepository(t *testing.T) (InventoryLineRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewInventoryLineRepository(logger, db), mock
}

func TestSave(t *testing.T) {
	repo, mock := newRepository(t)

	l, err := baseRequest().ToEntity(time.UTC, requestNow)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO inventory_line")).
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), l, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	type testCase struct {
		name       string
		affected   int64
		wantStatus string
	}

	testCases := []testCase{
		{name: "deleted", affected: 1},
		{name: "missing or already deleted", affected: 0, wantStatus: status.NOT_FOUND},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newRepository(t)

			mock.ExpectPrepare(regexp.QuoteMeta("soft_deleted = false")).
				ExpectExec().
				WithArgs(requestNow, "IL1").
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := repo.SoftDelete(context.Background(), "IL1", requestNow, nil)
			if tc.wantStatus == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.HasStatus(err, tc.wantStatus))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
