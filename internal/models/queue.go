package models

import "time"

// QueueStatus represents the lifecycle state of a daily service queue.
type QueueStatus string

const (
	QueueStatusActive QueueStatus = "active"
	QueueStatusPaused QueueStatus = "paused"
	QueueStatusClosed QueueStatus = "closed"
)

// Valid returns true when the status is a supported value.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusActive, QueueStatusPaused, QueueStatusClosed:
		return true
	default:
		return false
	}
}

// Queue is a per-provider, per-service, per-day container for scheduled
// appointments and walk-in entries. The (provider_id, service_name,
// queue_date) triple is unique.
type Queue struct {
	ID                string      `db:"id" json:"id"`
	ProviderID        string      `db:"provider_id" json:"provider_id"`
	Name              string      `db:"name" json:"name"`
	Description       string      `db:"description" json:"description"`
	ServiceName       string      `db:"service_name" json:"service_name"`
	QueueDate         time.Time   `db:"queue_date" json:"queue_date"`
	Status            QueueStatus `db:"status" json:"status"`
	MaxSize           int         `db:"max_size" json:"max_size"`
	EstimatedWaitTime int         `db:"estimated_wait_time" json:"estimated_wait_time"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// QueueEntryStatus represents the state of a walk-in queue entry.
type QueueEntryStatus string

const (
	QueueEntryStatusWaiting   QueueEntryStatus = "waiting"
	QueueEntryStatusCalled    QueueEntryStatus = "called"
	QueueEntryStatusCompleted QueueEntryStatus = "completed"
	QueueEntryStatusCancelled QueueEntryStatus = "cancelled"
	QueueEntryStatusNoShow    QueueEntryStatus = "no_show"
)

// Valid returns true when the status is a supported value.
func (s QueueEntryStatus) Valid() bool {
	switch s {
	case QueueEntryStatusWaiting, QueueEntryStatusCalled, QueueEntryStatusCompleted,
		QueueEntryStatusCancelled, QueueEntryStatusNoShow:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the entry status machine permits moving
// from s to target. Completed, cancelled and no_show are terminal.
func (s QueueEntryStatus) CanTransitionTo(target QueueEntryStatus) bool {
	switch s {
	case QueueEntryStatusWaiting:
		return target == QueueEntryStatusCalled ||
			target == QueueEntryStatusCancelled ||
			target == QueueEntryStatusNoShow
	case QueueEntryStatusCalled:
		return target == QueueEntryStatusCompleted ||
			target == QueueEntryStatusNoShow
	default:
		return false
	}
}

// QueueEntry is a walk-in unit of work inside a queue. Positions start at
// one, grow monotonically and are never reused, even after cancellation.
type QueueEntry struct {
	ID          string           `db:"id" json:"id"`
	QueueID     string           `db:"queue_id" json:"queue_id"`
	ClientName  string           `db:"client_name" json:"client_name"`
	ClientPhone *string          `db:"client_phone" json:"client_phone,omitempty"`
	ClientEmail *string          `db:"client_email" json:"client_email,omitempty"`
	Position    int              `db:"position" json:"position"`
	Status      QueueEntryStatus `db:"status" json:"status"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	JoinedAt    time.Time        `db:"joined_at" json:"joined_at"`
	CalledAt    *time.Time       `db:"called_at" json:"called_at,omitempty"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}
