package models

import "time"

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Valid returns true when the status is a supported value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	default:
		return false
	}
}

// Appointment represents a scheduled booking. QueueID is set at most once
// when the appointment is placed into its daily service queue.
type Appointment struct {
	ID          string            `db:"id" json:"id"`
	ProviderID  string            `db:"provider_id" json:"provider_id"`
	ClientName  string            `db:"client_name" json:"client_name"`
	ClientPhone *string           `db:"client_phone" json:"client_phone,omitempty"`
	ServiceName string            `db:"service_name" json:"service_name"`
	ScheduledAt *time.Time        `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status      AppointmentStatus `db:"status" json:"status"`
	QueueID     *string           `db:"queue_id" json:"queue_id,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// Assignable reports whether the appointment carries the fields required
// for queue assignment. Appointments failing this check are skipped, not
// rejected.
func (a *Appointment) Assignable() bool {
	return a != nil && a.ScheduledAt != nil && a.ServiceName != ""
}
