package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotline/slotline-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var testDay = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

func TestQueueRepositoryInsertCreatesRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO queues")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	queue := &models.Queue{
		ProviderID:  "prov-1",
		Name:        "Consult - January 08, 2024",
		ServiceName: "Consult",
		QueueDate:   testDay,
		Status:      models.QueueStatusActive,
		MaxSize:     100,
	}
	created, err := repo.Insert(context.Background(), queue)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, queue.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepositoryInsertConflictReportsNotCreated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	// ON CONFLICT DO NOTHING: zero rows affected means another writer
	// already holds the composite key.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO queues")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Insert(context.Background(), &models.Queue{
		ProviderID:  "prov-1",
		ServiceName: "Consult",
		QueueDate:   testDay,
		Status:      models.QueueStatusActive,
	})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestQueueRepositoryGetByKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	rows := sqlmock.NewRows([]string{"id", "provider_id", "name", "description", "service_name", "queue_date",
		"status", "max_size", "estimated_wait_time", "created_at", "updated_at"}).
		AddRow("queue-1", "prov-1", "Consult - January 08, 2024", "", "Consult", testDay,
			"active", 100, 30, testDay, testDay)

	mock.ExpectQuery(regexp.QuoteMeta("FROM queues")).
		WithArgs("prov-1", "Consult", testDay).
		WillReturnRows(rows)

	queue, err := repo.GetByKey(context.Background(), "prov-1", "Consult", testDay)
	require.NoError(t, err)
	assert.Equal(t, "queue-1", queue.ID)
	assert.Equal(t, models.QueueStatusActive, queue.Status)
}

func TestQueueRepositoryGetByKeyMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM queues")).
		WithArgs("prov-1", "Consult", testDay).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByKey(context.Background(), "prov-1", "Consult", testDay)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestQueueRepositoryUpdateStatusSkipsClosed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE queues SET status = $1, updated_at = $2 WHERE id = $3 AND status <> 'closed'")).
		WithArgs(string(models.QueueStatusPaused), sqlmock.AnyArg(), "queue-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.UpdateStatus(context.Background(), "queue-1", models.QueueStatusPaused)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestQueueRepositoryCloseBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE queues SET status = 'closed'")).
		WithArgs(sqlmock.AnyArg(), testDay).
		WillReturnResult(sqlmock.NewResult(0, 3))

	closed, err := repo.CloseBefore(context.Background(), testDay)
	require.NoError(t, err)
	assert.Equal(t, int64(3), closed)
}
