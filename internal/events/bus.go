package events

import "time"

// Domain event names.
const (
	AppointmentCreated   = "appointment_created"
	AppointmentConfirmed = "appointment_confirmed"
	AppointmentCancelled = "appointment_cancelled"
	AppointmentCompleted = "appointment_completed"
	PaymentSucceeded     = "payment_succeeded"
	PaymentFailed        = "payment_failed"
)

type Event struct {
	Name          string         `json:"name"`
	AppointmentID uint           `json:"appointment_id,omitempty"`
	PaymentID     uint           `json:"payment_id,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Bus is a collaborator interface; consumers (notifications, analytics) live
// downstream and are expected to tolerate duplicates.
type Bus interface {
	Publish(ev Event)
}
