package purchasable

import (
	"context"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/errors"
	"github.com/tsel-ticketmaster/tm-fulfillment/pkg/status"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegistryResolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := newLogger()
	reg := NewRegistry(map[Kind]Resolver{
		KindEvent:  NewCatalogRepository(logger, db, KindEvent, "event"),
		KindCourse: NewCatalogRepository(logger, db, KindCourse, "course"),
	})

	mock.ExpectPrepare(regexp.QuoteMeta("FROM event")).
		ExpectQuery().
		WithArgs("EV1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("EV1", "Java Jazz"))

	p, err := reg.Resolve(context.Background(), Reference{Kind: KindEvent, ID: "EV1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Purchasable{Kind: KindEvent, ID: "EV1", Name: "Java Jazz"}, p)

	mock.ExpectPrepare(regexp.QuoteMeta("FROM course")).
		ExpectQuery().
		WithArgs("C404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err = reg.Resolve(context.Background(), Reference{Kind: KindCourse, ID: "C404"}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, status.NOT_FOUND))

	_, err = reg.Resolve(context.Background(), Reference{Kind: KindProduct, ID: "P1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasStatus(err, status.BAD_REQUEST))

	assert.NoError(t, mock.ExpectationsWereMet())
}
