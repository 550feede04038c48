package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotline/slotline-api/internal/models"
)

const queueEntryColumns = `id, queue_id, client_name, client_phone, client_email, position, status, notes,
joined_at, called_at, completed_at, created_at, updated_at`

// QueueEntryRepository persists walk-in queue entries.
type QueueEntryRepository struct {
	db *sqlx.DB
}

// NewQueueEntryRepository constructs the repository.
func NewQueueEntryRepository(db *sqlx.DB) *QueueEntryRepository {
	return &QueueEntryRepository{db: db}
}

// GetByID returns a single entry.
func (r *QueueEntryRepository) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM queue_entries WHERE id = $1`, queueEntryColumns)
	var entry models.QueueEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByQueue returns a queue's entries ordered by position.
func (r *QueueEntryRepository) ListByQueue(ctx context.Context, queueID string) ([]models.QueueEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM queue_entries WHERE queue_id = $1 ORDER BY position ASC`, queueEntryColumns)
	var entries []models.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, queueID); err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	return entries, nil
}

// CountOpen returns the number of entries still waiting or called.
func (r *QueueEntryRepository) CountOpen(ctx context.Context, queueID string) (int, error) {
	const query = `SELECT COUNT(*) FROM queue_entries WHERE queue_id = $1 AND status IN ('waiting', 'called')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, queueID); err != nil {
		return 0, fmt.Errorf("count open entries: %w", err)
	}
	return count, nil
}

// InsertNext appends the entry at the queue's next position. The queue row
// is locked for the duration of the transaction so two concurrent joins
// can never compute the same position; positions are max+1 and are never
// reused after removals. Returns sql.ErrNoRows when the queue is unknown.
func (r *QueueEntryRepository) InsertNext(ctx context.Context, entry *models.QueueEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin join transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var queueID string
	const lockQuery = `SELECT id FROM queues WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &queueID, lockQuery, entry.QueueID); err != nil {
		return err
	}

	var next int
	const positionQuery = `SELECT COALESCE(MAX(position), 0) + 1 FROM queue_entries WHERE queue_id = $1`
	if err = tx.GetContext(ctx, &next, positionQuery, entry.QueueID); err != nil {
		return fmt.Errorf("compute next position: %w", err)
	}

	now := time.Now().UTC()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Position = next
	if entry.Status == "" {
		entry.Status = models.QueueEntryStatusWaiting
	}
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = now
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const insertQuery = `INSERT INTO queue_entries
(id, queue_id, client_name, client_phone, client_email, position, status, notes, joined_at, created_at, updated_at)
VALUES (:id, :queue_id, :client_name, :client_phone, :client_email, :position, :status, :notes, :joined_at,
 :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, entry); err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit join transaction: %w", err)
	}
	return nil
}

// EntryStatusUpdate carries the fields touched by a status transition.
// Timestamps are only written when non-nil, so each one is set exactly
// once on first entry into its state.
type EntryStatusUpdate struct {
	Status      models.QueueEntryStatus
	CalledAt    *time.Time
	CompletedAt *time.Time
}

// UpdateStatus applies a status transition to an entry.
func (r *QueueEntryRepository) UpdateStatus(ctx context.Context, id string, update EntryStatusUpdate) error {
	const query = `UPDATE queue_entries
SET status = $1,
    called_at = COALESCE(called_at, $2),
    completed_at = COALESCE(completed_at, $3),
    updated_at = $4
WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, update.Status, update.CalledAt, update.CompletedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("queue entry %s not found", id)
	}
	return nil
}
