package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotline/slotline-api/internal/models"
)

func TestAppointmentRepositoryAssignQueueFirstWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND queue_id IS NULL")).
		WithArgs("queue-1", sqlmock.AnyArg(), "appt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	linked, err := repo.AssignQueue(context.Background(), "appt-1", "queue-1")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestAppointmentRepositoryAssignQueueAlreadyLinked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $3 AND queue_id IS NULL")).
		WithArgs("queue-2", sqlmock.AnyArg(), "appt-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	linked, err := repo.AssignQueue(context.Background(), "appt-1", "queue-2")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestAppointmentRepositoryListForProviderOnDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	scheduled := testDay.Add(10 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "provider_id", "client_name", "client_phone", "service_name",
		"scheduled_at", "status", "queue_id", "created_at", "updated_at"}).
		AddRow("appt-1", "prov-1", "Alice", nil, "Consult", scheduled, "scheduled", nil, scheduled, scheduled)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments")).
		WithArgs("prov-1", testDay, testDay.Add(24*time.Hour), "scheduled", "confirmed").
		WillReturnRows(rows)

	appointments, err := repo.ListForProviderOnDate(context.Background(), "prov-1", testDay,
		[]models.AppointmentStatus{models.AppointmentStatusScheduled, models.AppointmentStatusConfirmed})
	require.NoError(t, err)
	require.Len(t, appointments, 1)
	assert.Equal(t, "Consult", appointments[0].ServiceName)
	assert.True(t, appointments[0].Assignable())
}
