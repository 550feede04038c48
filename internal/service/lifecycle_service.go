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

// sweepStatuses are the appointment states eligible for queue backfill.
var sweepStatuses = []models.AppointmentStatus{
	models.AppointmentStatusScheduled,
	models.AppointmentStatusConfirmed,
}

// ProviderSweepResult reports one provider's outcome inside a bulk sweep.
type ProviderSweepResult struct {
	ProviderID string `json:"provider_id"`
	Queues     int    `json:"queues"`
	Assigned   int    `json:"assigned"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// SweepReport aggregates a bulk sweep across providers.
type SweepReport struct {
	Date      string               `json:"date"`
	Providers []ProviderSweepResult `json:"providers"`
	Queues    []models.Queue        `json:"queues"`
}

// LifecycleService owns bulk daily queue creation and the closing of
// stale queues. Every operation tolerates arbitrary re-invocation: queues
// are get-or-created, appointments are linked at most once, and closing
// is a conditional update.
type LifecycleService struct {
	providers    providerRepository
	appointments appointmentRepository
	queues       *QueueService
	assigner     *AssignmentService
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewLifecycleService builds the service.
func NewLifecycleService(providers providerRepository, appointments appointmentRepository, queues *QueueService, assigner *AssignmentService, metrics *MetricsService, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		providers:    providers,
		appointments: appointments,
		queues:       queues,
		assigner:     assigner,
		metrics:      metrics,
		logger:       logger,
	}
}

// CreateForProvider ensures a queue exists for every service with
// appointments on the date and links each still-unlinked appointment.
func (s *LifecycleService) CreateForProvider(ctx context.Context, providerID string, date time.Time) ([]models.Queue, ProviderSweepResult, error) {
	result := ProviderSweepResult{ProviderID: providerID}

	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, result, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}

	appointments, err := s.appointments.ListForProviderOnDate(ctx, providerID, date, sweepStatuses)
	if err != nil {
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}

	byService := make(map[string][]*models.Appointment)
	var services []string
	for i := range appointments {
		appointment := &appointments[i]
		if !appointment.Assignable() {
			result.Skipped++
			continue
		}
		if _, seen := byService[appointment.ServiceName]; !seen {
			services = append(services, appointment.ServiceName)
		}
		byService[appointment.ServiceName] = append(byService[appointment.ServiceName], appointment)
	}

	var queues []models.Queue
	for _, serviceName := range services {
		queue, err := s.queues.GetOrCreate(ctx, providerID, serviceName, date, nil)
		if err != nil {
			return nil, result, err
		}
		queues = append(queues, *queue)
		result.Queues++

		for _, appointment := range byService[serviceName] {
			if appointment.QueueID != nil {
				continue
			}
			if _, err := s.assigner.Assign(ctx, appointment); err != nil {
				return nil, result, err
			}
			result.Assigned++
		}
	}

	s.logger.Info("daily queue sweep for provider finished",
		zap.String("provider_id", providerID),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("queues", result.Queues),
		zap.Int("assigned", result.Assigned),
		zap.Int("skipped", result.Skipped))
	return queues, result, nil
}

// CreateForAllProviders runs the daily sweep for every active provider.
// A failure for one provider is recorded in the report and never stops
// the remaining providers.
func (s *LifecycleService) CreateForAllProviders(ctx context.Context, date time.Time) (*SweepReport, error) {
	started := time.Now()
	providers, err := s.providers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list providers")
	}

	report := &SweepReport{Date: date.Format("2006-01-02")}
	for _, provider := range providers {
		queues, result, err := s.CreateForProvider(ctx, provider.ID, date)
		if err != nil {
			result.Error = err.Error()
			s.logger.Error("daily queue sweep failed for provider",
				zap.String("provider_id", provider.ID),
				zap.Error(err))
		} else {
			report.Queues = append(report.Queues, queues...)
		}
		report.Providers = append(report.Providers, result)
	}

	if s.metrics != nil {
		s.metrics.ObserveSweep("backfill", time.Since(started))
	}
	return report, nil
}

// ClosePast closes every active queue dated before cutoff and returns the
// number of queues closed. Re-running with the same cutoff closes zero
// additional queues.
func (s *LifecycleService) ClosePast(ctx context.Context, cutoff time.Time) (int64, error) {
	started := time.Now()
	day := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := s.queues.repo.CloseBefore(ctx, day)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close past queues")
	}

	if s.metrics != nil {
		s.metrics.RecordQueuesClosed(closed)
		s.metrics.ObserveSweep("close_past", time.Since(started))
	}
	if closed > 0 {
		s.logger.Info("closed past queues",
			zap.Int64("count", closed),
			zap.String("cutoff", day.Format("2006-01-02")))
	}
	return closed, nil
}
