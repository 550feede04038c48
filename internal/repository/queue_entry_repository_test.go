package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotline/slotline-api/internal/models"
)

func TestQueueEntryRepositoryInsertNextLocksAndAppends(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM queues WHERE id = $1 FOR UPDATE")).
		WithArgs("queue-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("queue-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(position), 0) + 1 FROM queue_entries WHERE queue_id = $1")).
		WithArgs("queue-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO queue_entries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.QueueEntry{QueueID: "queue-1", ClientName: "Alice"}
	err := repo.InsertNext(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Position)
	assert.Equal(t, models.QueueEntryStatusWaiting, entry.Status)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.JoinedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueEntryRepositoryInsertNextUnknownQueue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueEntryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM queues WHERE id = $1 FOR UPDATE")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.InsertNext(context.Background(), &models.QueueEntry{QueueID: "ghost", ClientName: "Alice"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueEntryRepositoryUpdateStatusSetsTimestampsOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueEntryRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("called_at = COALESCE(called_at, $2)")).
		WithArgs(string(models.QueueEntryStatusCalled), now, nil, sqlmock.AnyArg(), "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "entry-1", EntryStatusUpdate{
		Status:   models.QueueEntryStatusCalled,
		CalledAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueEntryRepositoryUpdateStatusMissingEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueEntryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", EntryStatusUpdate{Status: models.QueueEntryStatusCancelled})
	require.Error(t, err)
}

func TestQueueEntryRepositoryListByQueue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQueueEntryRepository(db)

	joined := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "queue_id", "client_name", "client_phone", "client_email", "position",
		"status", "notes", "joined_at", "called_at", "completed_at", "created_at", "updated_at"}).
		AddRow("entry-1", "queue-1", "Alice", nil, nil, 1, "waiting", nil, joined, nil, nil, joined, joined).
		AddRow("entry-2", "queue-1", "Bob", nil, nil, 2, "waiting", nil, joined, nil, nil, joined, joined)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY position ASC")).
		WithArgs("queue-1").
		WillReturnRows(rows)

	entries, err := repo.ListByQueue(context.Background(), "queue-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
}
