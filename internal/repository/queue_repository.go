package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotline/slotline-api/internal/models"
)

const queueColumns = `id, provider_id, name, description, service_name, queue_date, status, max_size,
estimated_wait_time, created_at, updated_at`

// QueueRepository persists daily service queues. The storage layer holds a
// unique constraint on (provider_id, service_name, queue_date); creation
// races are resolved by inserting with ON CONFLICT DO NOTHING and
// re-reading the winning row.
type QueueRepository struct {
	db *sqlx.DB
}

// NewQueueRepository constructs the repository.
func NewQueueRepository(db *sqlx.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// GetByID returns a single queue.
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*models.Queue, error) {
	query := fmt.Sprintf(`SELECT %s FROM queues WHERE id = $1`, queueColumns)
	var queue models.Queue
	if err := r.db.GetContext(ctx, &queue, query, id); err != nil {
		return nil, err
	}
	return &queue, nil
}

// GetByKey returns the queue identified by the composite key.
func (r *QueueRepository) GetByKey(ctx context.Context, providerID, serviceName string, date time.Time) (*models.Queue, error) {
	query := fmt.Sprintf(`SELECT %s FROM queues
WHERE provider_id = $1 AND service_name = $2 AND queue_date = $3`, queueColumns)
	var queue models.Queue
	if err := r.db.GetContext(ctx, &queue, query, providerID, serviceName, date); err != nil {
		return nil, err
	}
	return &queue, nil
}

// Insert adds a queue row, backing off silently when the composite key
// already exists. It reports whether this call created the row; on a lost
// race the caller re-reads with GetByKey.
func (r *QueueRepository) Insert(ctx context.Context, queue *models.Queue) (bool, error) {
	if queue.ID == "" {
		queue.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if queue.CreatedAt.IsZero() {
		queue.CreatedAt = now
	}
	queue.UpdatedAt = now

	const query = `INSERT INTO queues
(id, provider_id, name, description, service_name, queue_date, status, max_size, estimated_wait_time,
 created_at, updated_at)
VALUES (:id, :provider_id, :name, :description, :service_name, :queue_date, :status, :max_size,
 :estimated_wait_time, :created_at, :updated_at)
ON CONFLICT (provider_id, service_name, queue_date) DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, queue)
	if err != nil {
		return false, fmt.Errorf("insert queue: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert queue: %w", err)
	}
	return rows > 0, nil
}

// ListByProviderAndDate returns a provider's queues for one date, ordered
// by service name.
func (r *QueueRepository) ListByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]models.Queue, error) {
	query := fmt.Sprintf(`SELECT %s FROM queues
WHERE provider_id = $1 AND queue_date = $2 ORDER BY service_name ASC`, queueColumns)
	var queues []models.Queue
	if err := r.db.SelectContext(ctx, &queues, query, providerID, date); err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	return queues, nil
}

// UpdateStatus sets a queue's status. It refuses to touch closed queues so
// a close is terminal.
func (r *QueueRepository) UpdateStatus(ctx context.Context, id string, status models.QueueStatus) (bool, error) {
	const query = `UPDATE queues SET status = $1, updated_at = $2 WHERE id = $3 AND status <> 'closed'`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("update queue status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update queue status: %w", err)
	}
	return rows > 0, nil
}

// CloseBefore closes every active queue dated strictly before cutoff and
// returns how many rows changed. Paused and already-closed queues are left
// alone, which makes repeated sweeps no-ops.
func (r *QueueRepository) CloseBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE queues SET status = 'closed', updated_at = $1
WHERE queue_date < $2 AND status = 'active'`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("close past queues: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close past queues: %w", err)
	}
	return rows, nil
}
