package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

type queueRepository interface {
	GetByID(ctx context.Context, id string) (*models.Queue, error)
	GetByKey(ctx context.Context, providerID, serviceName string, date time.Time) (*models.Queue, error)
	Insert(ctx context.Context, queue *models.Queue) (bool, error)
	ListByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]models.Queue, error)
	UpdateStatus(ctx context.Context, id string, status models.QueueStatus) (bool, error)
	CloseBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueueDefaults are the creation-time settings applied to new queues.
// They are policy constants; existing queues are never retrofitted.
type QueueDefaults struct {
	MaxSize           int
	EstimatedWaitTime int
}

// QueueSettings optionally overrides defaults at creation time only.
type QueueSettings struct {
	MaxSize           *int
	EstimatedWaitTime *int
}

// QueueService is the registry for daily service queues: one queue per
// (provider, service, date), created lazily and never recreated.
type QueueService struct {
	repo     queueRepository
	defaults QueueDefaults
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewQueueService builds the registry.
func NewQueueService(repo queueRepository, defaults QueueDefaults, metrics *MetricsService, logger *zap.Logger) *QueueService {
	if defaults.MaxSize <= 0 {
		defaults.MaxSize = 100
	}
	if defaults.EstimatedWaitTime <= 0 {
		defaults.EstimatedWaitTime = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{repo: repo, defaults: defaults, metrics: metrics, logger: logger}
}

// queueName derives the deterministic display name for a daily queue.
func queueName(serviceName string, date time.Time) string {
	return fmt.Sprintf("%s - %s", serviceName, date.Format("January 02, 2006"))
}

func queueDescription(serviceName string, date time.Time) string {
	return fmt.Sprintf("Daily queue for %s appointments on %s", serviceName, date.Format("Monday, January 02, 2006"))
}

// GetOrCreate returns the queue for the composite key, creating it on
// first use. Concurrent callers racing on the same key are serialized by
// the storage uniqueness constraint: the losing inserter re-reads the
// winner's row, so callers always observe a single queue per key and an
// existing queue's settings are never modified.
func (s *QueueService) GetOrCreate(ctx context.Context, providerID, serviceName string, date time.Time, settings *QueueSettings) (*models.Queue, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	existing, err := s.repo.GetByKey(ctx, providerID, serviceName, day)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue")
	}

	queue := &models.Queue{
		ProviderID:        providerID,
		Name:              queueName(serviceName, day),
		Description:       queueDescription(serviceName, day),
		ServiceName:       serviceName,
		QueueDate:         day,
		Status:            models.QueueStatusActive,
		MaxSize:           s.defaults.MaxSize,
		EstimatedWaitTime: s.defaults.EstimatedWaitTime,
	}
	if settings != nil {
		if settings.MaxSize != nil {
			queue.MaxSize = *settings.MaxSize
		}
		if settings.EstimatedWaitTime != nil {
			queue.EstimatedWaitTime = *settings.EstimatedWaitTime
		}
	}

	created, err := s.repo.Insert(ctx, queue)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create queue")
	}
	if created {
		if s.metrics != nil {
			s.metrics.RecordQueueCreated()
		}
		s.logger.Info("created daily queue",
			zap.String("queue_id", queue.ID),
			zap.String("provider_id", providerID),
			zap.String("service", serviceName),
			zap.String("date", day.Format("2006-01-02")))
		return queue, nil
	}

	// Lost the creation race; the conflict stays internal and the
	// winner's row is returned instead.
	winner, err := s.repo.GetByKey(ctx, providerID, serviceName, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "queue creation race could not be resolved")
	}
	return winner, nil
}

// Get returns a queue by id.
func (s *QueueService) Get(ctx context.Context, id string) (*models.Queue, error) {
	queue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "queue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue")
	}
	return queue, nil
}

// ListDaily returns a provider's queues for a date, ordered by service.
func (s *QueueService) ListDaily(ctx context.Context, providerID string, date time.Time) ([]models.Queue, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	queues, err := s.repo.ListByProviderAndDate(ctx, providerID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queues")
	}
	return queues, nil
}

// SetStatus pauses or resumes a queue. Closing happens only through the
// lifecycle sweep, and a closed queue is terminal.
func (s *QueueService) SetStatus(ctx context.Context, id string, status models.QueueStatus) (*models.Queue, error) {
	if status != models.QueueStatusActive && status != models.QueueStatusPaused {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("queues cannot be set to %q manually", status))
	}

	queue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if queue.Status == models.QueueStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrQueueClosed, "closed queues cannot be reopened")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update queue status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrQueueClosed, "closed queues cannot be reopened")
	}
	queue.Status = status
	return queue, nil
}
