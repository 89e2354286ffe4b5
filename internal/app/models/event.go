package models

import "time"

const (
	EventAppointmentRequested   = "appointment.requested"
	EventAppointmentAccepted    = "appointment.accepted"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCompleted   = "appointment.completed"
	EventPaymentInitiated       = "payment.initiated"
	EventPaymentSettled         = "payment.settled"
	EventPaymentFailed          = "payment.failed"
	EventRefundInitiated        = "payment.refund_initiated"
	EventRefundSettled          = "payment.refunded"
)

// DomainEvent is published to the messaging queue for downstream
// notification services. Delivery is fire-and-forget from the engine's
// perspective.
type DomainEvent struct {
	Type          string            `json:"type"`
	AppointmentID string            `json:"appointment_id,omitempty"`
	PaymentID     string            `json:"payment_id,omitempty"`
	PatientID     string            `json:"patient_id,omitempty"`
	DoctorID      string            `json:"doctor_id,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
