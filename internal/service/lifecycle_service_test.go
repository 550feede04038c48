package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
)

func newLifecycleFixture(providers *providerRepoStub, appointments *appointmentRepoStub) (*LifecycleService, *queueRepoStub) {
	queueRepo := newQueueRepoStub()
	queueSvc := newQueueServiceForTest(queueRepo)
	assigner := NewAssignmentService(appointments, queueSvc, nil, zap.NewNop())
	return NewLifecycleService(providers, appointments, queueSvc, assigner, nil, zap.NewNop()), queueRepo
}

func TestCreateForProviderGroupsByService(t *testing.T) {
	appointments := newAppointmentRepoStub(
		scheduledAppointment("appt-1", "prov-1", "Consult", monday.Add(9*time.Hour)),
		scheduledAppointment("appt-2", "prov-1", "Consult", monday.Add(11*time.Hour)),
		scheduledAppointment("appt-3", "prov-1", "Cleaning", monday.Add(14*time.Hour)),
	)
	svc, queueRepo := newLifecycleFixture(knownProviders("prov-1"), appointments)

	queues, result, err := svc.CreateForProvider(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	assert.Len(t, queues, 2)
	assert.Equal(t, 2, result.Queues)
	assert.Equal(t, 3, result.Assigned)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, 2, queueRepo.insertCalls)

	for _, a := range appointments.byID {
		assert.NotNil(t, a.QueueID)
	}
}

func TestCreateForProviderSkipsIncompleteAppointments(t *testing.T) {
	appointments := newAppointmentRepoStub(
		scheduledAppointment("appt-1", "prov-1", "Consult", monday.Add(9*time.Hour)),
		&models.Appointment{ID: "walkin-1", ProviderID: "prov-1", Status: models.AppointmentStatusScheduled},
	)
	svc, _ := newLifecycleFixture(knownProviders("prov-1"), appointments)

	_, result, err := svc.CreateForProvider(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Assigned)
	assert.Equal(t, 1, result.Skipped)
	assert.Nil(t, appointments.byID["walkin-1"].QueueID)
}

func TestCreateForProviderRerunIsIdempotent(t *testing.T) {
	appointments := newAppointmentRepoStub(
		scheduledAppointment("appt-1", "prov-1", "Consult", monday.Add(9*time.Hour)),
	)
	svc, queueRepo := newLifecycleFixture(knownProviders("prov-1"), appointments)

	_, _, err := svc.CreateForProvider(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	queues, result, err := svc.CreateForProvider(context.Background(), "prov-1", monday)
	require.NoError(t, err)

	assert.Len(t, queues, 1)
	assert.Zero(t, result.Assigned)
	assert.Equal(t, 1, queueRepo.insertCalls)
}

func TestCreateForProviderUnknownProvider(t *testing.T) {
	svc, _ := newLifecycleFixture(knownProviders(), newAppointmentRepoStub())

	_, _, err := svc.CreateForProvider(context.Background(), "ghost", monday)
	require.Error(t, err)
}

func TestCreateForAllProvidersIsolatesFailures(t *testing.T) {
	providers := knownProviders("prov-ok")
	// Listing returns a provider the per-provider path cannot load again,
	// forcing one failing entry without touching the other.
	providers.providers["prov-bad"] = &models.Provider{ID: "prov-bad", Active: true}
	appointments := newAppointmentRepoStub(
		scheduledAppointment("appt-1", "prov-ok", "Consult", monday.Add(9*time.Hour)),
	)
	svc, _ := newLifecycleFixture(providers, appointments)
	svc.providers = &flakyProviderRepo{inner: providers, failID: "prov-bad"}

	report, err := svc.CreateForAllProviders(context.Background(), monday)
	require.NoError(t, err)
	require.Len(t, report.Providers, 2)

	var okResult, badResult *ProviderSweepResult
	for i := range report.Providers {
		switch report.Providers[i].ProviderID {
		case "prov-ok":
			okResult = &report.Providers[i]
		case "prov-bad":
			badResult = &report.Providers[i]
		}
	}
	require.NotNil(t, okResult)
	require.NotNil(t, badResult)
	assert.Empty(t, okResult.Error)
	assert.Equal(t, 1, okResult.Assigned)
	assert.NotEmpty(t, badResult.Error)
	assert.Len(t, report.Queues, 1)
}

// flakyProviderRepo lists every provider but refuses to load one of them.
type flakyProviderRepo struct {
	inner  *providerRepoStub
	failID string
}

func (f *flakyProviderRepo) FindByID(ctx context.Context, id string) (*models.Provider, error) {
	if id == f.failID {
		return nil, assert.AnError
	}
	return f.inner.FindByID(ctx, id)
}

func (f *flakyProviderRepo) ListActive(ctx context.Context) ([]models.Provider, error) {
	return f.inner.ListActive(ctx)
}

func TestClosePastClosesOnlyOlderActiveQueues(t *testing.T) {
	appointments := newAppointmentRepoStub()
	svc, queueRepo := newLifecycleFixture(knownProviders("prov-1"), appointments)

	sunday := monday.AddDate(0, 0, -1)
	queueRepo.byKey[queueKey("prov-1", "Consult", sunday)] = &models.Queue{
		ID: "old", ProviderID: "prov-1", ServiceName: "Consult", QueueDate: sunday, Status: models.QueueStatusActive,
	}
	queueRepo.byKey[queueKey("prov-1", "Consult", monday)] = &models.Queue{
		ID: "today", ProviderID: "prov-1", ServiceName: "Consult", QueueDate: monday, Status: models.QueueStatusActive,
	}

	closed, err := svc.ClosePast(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
	assert.Equal(t, models.QueueStatusClosed, queueRepo.byKey[queueKey("prov-1", "Consult", sunday)].Status)
	assert.Equal(t, models.QueueStatusActive, queueRepo.byKey[queueKey("prov-1", "Consult", monday)].Status)

	again, err := svc.ClosePast(context.Background(), monday)
	require.NoError(t, err)
	assert.Zero(t, again)
}
