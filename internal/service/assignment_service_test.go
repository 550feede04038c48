package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
)

type appointmentRepoStub struct {
	byID map[string]*models.Appointment
	// linkedElsewhere makes AssignQueue report the conditional update
	// touched no rows, as if another caller linked the appointment first.
	linkedElsewhere *string
	assignCalls     int
}

func newAppointmentRepoStub(appointments ...*models.Appointment) *appointmentRepoStub {
	stub := &appointmentRepoStub{byID: map[string]*models.Appointment{}}
	for _, a := range appointments {
		stub.byID[a.ID] = a
	}
	return stub
}

func (s *appointmentRepoStub) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if a, ok := s.byID[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *appointmentRepoStub) ListForProviderOnDate(ctx context.Context, providerID string, date time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	allowed := make(map[models.AppointmentStatus]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}
	var result []models.Appointment
	for _, a := range s.byID {
		if a.ProviderID != providerID {
			continue
		}
		if _, ok := allowed[a.Status]; !ok {
			continue
		}
		if a.ScheduledAt != nil {
			day := a.ScheduledAt.UTC()
			if day.Year() != date.Year() || day.Month() != date.Month() || day.Day() != date.Day() {
				continue
			}
		}
		result = append(result, *a)
	}
	return result, nil
}

func (s *appointmentRepoStub) AssignQueue(ctx context.Context, appointmentID, queueID string) (bool, error) {
	s.assignCalls++
	a, ok := s.byID[appointmentID]
	if !ok {
		return false, nil
	}
	if s.linkedElsewhere != nil {
		a.QueueID = s.linkedElsewhere
		return false, nil
	}
	if a.QueueID != nil {
		return false, nil
	}
	a.QueueID = &queueID
	return true, nil
}

func scheduledAppointment(id, providerID, serviceName string, at time.Time) *models.Appointment {
	return &models.Appointment{
		ID:          id,
		ProviderID:  providerID,
		ServiceName: serviceName,
		ScheduledAt: &at,
		Status:      models.AppointmentStatusScheduled,
	}
}

func newAssignmentFixture(appointments *appointmentRepoStub) (*AssignmentService, *queueRepoStub) {
	queueRepo := newQueueRepoStub()
	queueSvc := newQueueServiceForTest(queueRepo)
	return NewAssignmentService(appointments, queueSvc, nil, zap.NewNop()), queueRepo
}

func TestAssignLinksAppointment(t *testing.T) {
	appointments := newAppointmentRepoStub(scheduledAppointment("appt-1", "prov-1", "Consult", monday.Add(10*time.Hour)))
	svc, queueRepo := newAssignmentFixture(appointments)

	appointment, err := appointments.GetByID(context.Background(), "appt-1")
	require.NoError(t, err)
	queue, err := svc.Assign(context.Background(), appointment)
	require.NoError(t, err)
	require.NotNil(t, queue)

	assert.Equal(t, "Consult - January 08, 2024", queue.Name)
	require.NotNil(t, appointment.QueueID)
	assert.Equal(t, queue.ID, *appointment.QueueID)
	assert.Equal(t, 1, queueRepo.insertCalls)
}

func TestAssignSkipsUnassignable(t *testing.T) {
	appointments := newAppointmentRepoStub(&models.Appointment{
		ID:         "walkin-1",
		ProviderID: "prov-1",
		Status:     models.AppointmentStatusScheduled,
	})
	svc, queueRepo := newAssignmentFixture(appointments)

	appointment, err := appointments.GetByID(context.Background(), "walkin-1")
	require.NoError(t, err)
	queue, err := svc.Assign(context.Background(), appointment)
	require.NoError(t, err)
	assert.Nil(t, queue)
	assert.Zero(t, queueRepo.insertCalls)
	assert.Zero(t, appointments.assignCalls)
}

func TestAssignAlreadyLinkedIsNoOp(t *testing.T) {
	at := monday.Add(9 * time.Hour)
	existing := "queue-existing"
	appointments := newAppointmentRepoStub(&models.Appointment{
		ID:          "appt-1",
		ProviderID:  "prov-1",
		ServiceName: "Consult",
		ScheduledAt: &at,
		Status:      models.AppointmentStatusScheduled,
		QueueID:     &existing,
	})
	svc, queueRepo := newAssignmentFixture(appointments)
	queueRepo.byID[existing] = &models.Queue{ID: existing, ProviderID: "prov-1", ServiceName: "Consult", QueueDate: monday}

	appointment, err := appointments.GetByID(context.Background(), "appt-1")
	require.NoError(t, err)
	queue, err := svc.Assign(context.Background(), appointment)
	require.NoError(t, err)
	require.NotNil(t, queue)
	assert.Equal(t, existing, queue.ID)
	assert.Zero(t, appointments.assignCalls)
}

func TestAssignConcurrentWinnerHonoured(t *testing.T) {
	appointments := newAppointmentRepoStub(scheduledAppointment("appt-1", "prov-1", "Consult", monday.Add(10*time.Hour)))
	svc, queueRepo := newAssignmentFixture(appointments)

	winner := "queue-winner"
	appointments.linkedElsewhere = &winner
	queueRepo.byID[winner] = &models.Queue{ID: winner, ProviderID: "prov-1", ServiceName: "Consult", QueueDate: monday}

	appointment, err := appointments.GetByID(context.Background(), "appt-1")
	require.NoError(t, err)
	queue, err := svc.Assign(context.Background(), appointment)
	require.NoError(t, err)
	require.NotNil(t, queue)
	assert.Equal(t, winner, queue.ID)
	require.NotNil(t, appointment.QueueID)
	assert.Equal(t, winner, *appointment.QueueID)
}

func TestAssignByIDUnknownAppointment(t *testing.T) {
	svc, _ := newAssignmentFixture(newAppointmentRepoStub())

	_, _, err := svc.AssignByID(context.Background(), "ghost")
	require.Error(t, err)
}
