package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	"github.com/slotline/slotline-api/internal/repository"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

type queueEntryRepository interface {
	GetByID(ctx context.Context, id string) (*models.QueueEntry, error)
	ListByQueue(ctx context.Context, queueID string) ([]models.QueueEntry, error)
	CountOpen(ctx context.Context, queueID string) (int, error)
	InsertNext(ctx context.Context, entry *models.QueueEntry) error
	UpdateStatus(ctx context.Context, id string, update repository.EntryStatusUpdate) error
}

// JoinPayload is a walk-in join request.
type JoinPayload struct {
	ClientName  string  `json:"client_name" validate:"required,min=1,max=255"`
	ClientPhone *string `json:"client_phone,omitempty" validate:"omitempty,max=32"`
	ClientEmail *string `json:"client_email,omitempty" validate:"omitempty,email"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// EntryService manages walk-in entries: joining a queue and moving
// entries through the waiting/called/completed lifecycle.
type EntryService struct {
	entries  queueEntryRepository
	queues   *QueueService
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewEntryService builds the service.
func NewEntryService(entries queueEntryRepository, queues *QueueService, metrics *MetricsService, logger *zap.Logger) *EntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryService{
		entries:  entries,
		queues:   queues,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

// Join appends a client to the back of a queue. The entry's position is
// one past the highest position ever issued for the queue, so positions
// are unique per queue and never reused even after cancellations.
func (s *EntryService) Join(ctx context.Context, queueID string, payload JoinPayload) (*models.QueueEntry, error) {
	if err := s.validate.Struct(payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	queue, err := s.queues.Get(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if queue.Status == models.QueueStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrQueueClosed, "queue is closed and cannot accept new entries")
	}

	open, err := s.entries.CountOpen(ctx, queueID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count queue entries")
	}
	if queue.MaxSize > 0 && open >= queue.MaxSize {
		return nil, appErrors.Clone(appErrors.ErrQueueFull, fmt.Sprintf("queue is at capacity (%d)", queue.MaxSize))
	}

	entry := &models.QueueEntry{
		QueueID:     queueID,
		ClientName:  payload.ClientName,
		ClientPhone: payload.ClientPhone,
		ClientEmail: payload.ClientEmail,
		Notes:       payload.Notes,
		Status:      models.QueueEntryStatusWaiting,
	}
	if err := s.entries.InsertNext(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "queue not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join queue")
	}

	if s.metrics != nil {
		s.metrics.RecordEntryJoined()
	}
	s.logger.Info("client joined queue",
		zap.String("entry_id", entry.ID),
		zap.String("queue_id", queueID),
		zap.Int("position", entry.Position))
	return entry, nil
}

// Get returns a single entry.
func (s *EntryService) Get(ctx context.Context, id string) (*models.QueueEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "queue entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load queue entry")
	}
	return entry, nil
}

// List returns a queue's entries ordered by position.
func (s *EntryService) List(ctx context.Context, queueID string) ([]models.QueueEntry, error) {
	if _, err := s.queues.Get(ctx, queueID); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByQueue(ctx, queueID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queue entries")
	}
	return entries, nil
}

// Transition moves an entry to the requested status. Legal moves are
// waiting to called, cancelled or no_show, and called to completed or
// no_show. called_at and completed_at are stamped the first time their
// state is entered and never overwritten afterwards.
func (s *EntryService) Transition(ctx context.Context, id string, target models.QueueEntryStatus) (*models.QueueEntry, error) {
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entry status %q", target))
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrStateTransition,
			fmt.Sprintf("cannot move entry from %q to %q", entry.Status, target))
	}

	now := time.Now().UTC()
	update := repository.EntryStatusUpdate{Status: target}
	switch target {
	case models.QueueEntryStatusCalled:
		update.CalledAt = &now
	case models.QueueEntryStatusCompleted:
		update.CompletedAt = &now
	}

	if err := s.entries.UpdateStatus(ctx, id, update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update queue entry")
	}

	entry.Status = target
	if update.CalledAt != nil && entry.CalledAt == nil {
		entry.CalledAt = update.CalledAt
	}
	if update.CompletedAt != nil && entry.CompletedAt == nil {
		entry.CompletedAt = update.CompletedAt
	}
	entry.UpdatedAt = now

	s.logger.Info("queue entry transitioned",
		zap.String("entry_id", id),
		zap.String("status", string(target)))
	return entry, nil
}
