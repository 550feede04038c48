package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

type appointmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	ListForProviderOnDate(ctx context.Context, providerID string, date time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error)
	AssignQueue(ctx context.Context, appointmentID, queueID string) (bool, error)
}

// AssignmentService places appointments into their daily service queue.
// The first assignment wins; later calls for an already-linked
// appointment are no-ops that return the linked queue.
type AssignmentService struct {
	appointments appointmentRepository
	queues       *QueueService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewAssignmentService builds the service.
func NewAssignmentService(appointments appointmentRepository, queues *QueueService, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{appointments: appointments, queues: queues, metrics: metrics, logger: logger}
}

// Assign links the appointment to the queue for its service and day. A
// nil queue with nil error means the appointment was skipped because it
// lacks a schedule or service name; that is reported, not raised.
func (s *AssignmentService) Assign(ctx context.Context, appointment *models.Appointment) (*models.Queue, error) {
	if !appointment.Assignable() {
		if s.metrics != nil {
			s.metrics.RecordAssignment("skipped")
		}
		s.logger.Debug("appointment not assignable, skipping",
			zap.String("appointment_id", appointment.ID))
		return nil, nil
	}

	if appointment.QueueID != nil {
		queue, err := s.queues.Get(ctx, *appointment.QueueID)
		if err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.RecordAssignment("existing")
		}
		return queue, nil
	}

	queue, err := s.queues.GetOrCreate(ctx, appointment.ProviderID, appointment.ServiceName, *appointment.ScheduledAt, nil)
	if err != nil {
		return nil, err
	}

	linked, err := s.appointments.AssignQueue(ctx, appointment.ID, queue.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link appointment")
	}
	if !linked {
		// A concurrent caller linked it first; honour that assignment.
		current, err := s.appointments.GetByID(ctx, appointment.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload appointment")
		}
		appointment.QueueID = current.QueueID
		if current.QueueID == nil {
			return nil, nil
		}
		if s.metrics != nil {
			s.metrics.RecordAssignment("existing")
		}
		return s.queues.Get(ctx, *current.QueueID)
	}

	appointment.QueueID = &queue.ID
	if s.metrics != nil {
		s.metrics.RecordAssignment("assigned")
	}
	s.logger.Info("assigned appointment to queue",
		zap.String("appointment_id", appointment.ID),
		zap.String("queue_id", queue.ID),
		zap.String("queue_name", queue.Name))
	return queue, nil
}

// AssignByID loads an appointment and assigns it.
func (s *AssignmentService) AssignByID(ctx context.Context, appointmentID string) (*models.Queue, *models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	queue, err := s.Assign(ctx, appointment)
	if err != nil {
		return nil, nil, err
	}
	return queue, appointment, nil
}
