package services

import (
	"context"
	"sync"
	"testing"

	"food-delivery/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mockDB.Close()
	})
	return sqlx.NewDb(mockDB, "pgx"), mock
}

func nullLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

// captureDispatcher records dispatched orders instead of notifying anyone.
type captureDispatcher struct {
	mu     sync.Mutex
	orders []models.Order
}

func (c *captureDispatcher) Dispatch(_ context.Context, o models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = append(c.orders, o)
}

func (c *captureDispatcher) dispatched() []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Order(nil), c.orders...)
}
