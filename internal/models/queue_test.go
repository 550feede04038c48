package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueEntryStatusTransitions(t *testing.T) {
	cases := []struct {
		from    QueueEntryStatus
		to      QueueEntryStatus
		allowed bool
	}{
		{QueueEntryStatusWaiting, QueueEntryStatusCalled, true},
		{QueueEntryStatusWaiting, QueueEntryStatusCancelled, true},
		{QueueEntryStatusWaiting, QueueEntryStatusNoShow, true},
		{QueueEntryStatusWaiting, QueueEntryStatusCompleted, false},
		{QueueEntryStatusCalled, QueueEntryStatusCompleted, true},
		{QueueEntryStatusCalled, QueueEntryStatusNoShow, true},
		{QueueEntryStatusCalled, QueueEntryStatusCancelled, false},
		{QueueEntryStatusCalled, QueueEntryStatusWaiting, false},
		{QueueEntryStatusCompleted, QueueEntryStatusCalled, false},
		{QueueEntryStatusCancelled, QueueEntryStatusWaiting, false},
		{QueueEntryStatusNoShow, QueueEntryStatusCalled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAppointmentAssignable(t *testing.T) {
	var nilAppointment *Appointment
	assert.False(t, nilAppointment.Assignable())

	a := &Appointment{ServiceName: "Consult"}
	assert.False(t, a.Assignable(), "missing scheduled_at")

	at := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	a.ScheduledAt = &at
	assert.True(t, a.Assignable())

	a.ServiceName = ""
	assert.False(t, a.Assignable())
}
