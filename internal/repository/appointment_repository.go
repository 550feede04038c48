package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slotline/slotline-api/internal/models"
)

const appointmentColumns = `id, provider_id, client_name, client_phone, service_name, scheduled_at, status,
queue_id, created_at, updated_at`

// AppointmentRepository reads appointments and links them to queues.
// Appointment CRUD is owned by the booking API; the engine only filters
// and sets queue_id.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// GetByID returns a single appointment.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// ListForProviderOnDate returns a provider's appointments scheduled within
// the given calendar day, restricted to the supplied statuses.
func (r *AppointmentRepository) ListForProviderOnDate(ctx context.Context, providerID string, date time.Time, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE provider_id = ? AND scheduled_at >= ? AND scheduled_at < ? AND status IN (?)
ORDER BY scheduled_at ASC`, appointmentColumns)
	query, args, err := sqlx.In(query, providerID, dayStart, dayEnd, statuses)
	if err != nil {
		return nil, fmt.Errorf("build appointment query: %w", err)
	}
	query = r.db.Rebind(query)

	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// AssignQueue links an appointment to a queue only when no queue has been
// assigned yet. The WHERE guard makes the first assignment win under
// concurrent callers; it reports whether this call performed the link.
func (r *AppointmentRepository) AssignQueue(ctx context.Context, appointmentID, queueID string) (bool, error) {
	const query = `UPDATE appointments SET queue_id = $1, updated_at = $2 WHERE id = $3 AND queue_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, queueID, time.Now().UTC(), appointmentID)
	if err != nil {
		return false, fmt.Errorf("assign appointment to queue: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign appointment to queue: %w", err)
	}
	return rows > 0, nil
}
