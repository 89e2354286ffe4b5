package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AppointmentStatus string

const (
	AppointmentPending        AppointmentStatus = "pending"
	AppointmentAccepted       AppointmentStatus = "accepted"
	AppointmentPaymentPending AppointmentStatus = "payment_pending"
	AppointmentConfirmed      AppointmentStatus = "confirmed"
	AppointmentCompleted      AppointmentStatus = "completed"
	AppointmentNoShow         AppointmentStatus = "no_show"
	AppointmentCancelled      AppointmentStatus = "cancelled"
	AppointmentExpired        AppointmentStatus = "expired"
	AppointmentRescheduled    AppointmentStatus = "rescheduled"
)

// InactiveAppointmentStatuses lists statuses that no longer occupy a
// time window; everything else counts against overlap checks.
var InactiveAppointmentStatuses = []AppointmentStatus{
	AppointmentCancelled,
	AppointmentExpired,
	AppointmentNoShow,
}

type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleRejected RescheduleStatus = "rejected"
)

type RescheduleEntry struct {
	PreviousSlotID string           `bson:"previousSlotId" json:"previous_slot_id"`
	PreviousStart  time.Time        `bson:"previousStart" json:"previous_start"`
	PreviousEnd    time.Time        `bson:"previousEnd" json:"previous_end"`
	NewSlotID      string           `bson:"newSlotId" json:"new_slot_id"`
	NewDate        string           `bson:"newDate" json:"new_date"`
	NewStart       time.Time        `bson:"newStart" json:"new_start"`
	NewEnd         time.Time        `bson:"newEnd" json:"new_end"`
	Reason         string           `bson:"reason" json:"reason"`
	RequestedBy    string           `bson:"requestedBy" json:"requested_by"`
	RequesterRole  string           `bson:"requesterRole" json:"requester_role"`
	Status         RescheduleStatus `bson:"status" json:"status"`
	RequestedAt    time.Time        `bson:"requestedAt" json:"requested_at"`
	RespondedAt    *time.Time       `bson:"respondedAt,omitempty" json:"responded_at,omitempty"`
}

// CancellationRecord is written once on cancellation and never cleared.
type CancellationRecord struct {
	Reason      string    `bson:"reason" json:"reason"`
	CancelledBy string    `bson:"cancelledBy" json:"cancelled_by"`
	Role        string    `bson:"role" json:"role"`
	CancelledAt time.Time `bson:"cancelledAt" json:"cancelled_at"`
}

type Appointment struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PatientID    string              `bson:"patientId" json:"patient_id"`
	DoctorID     string              `bson:"doctorId" json:"doctor_id"`
	Type         string              `bson:"type" json:"type"`
	Reason       string              `bson:"reason" json:"reason"`
	Fee          float64             `bson:"fee" json:"fee"`
	Currency     string              `bson:"currency" json:"currency"`
	SlotID       string              `bson:"slotId" json:"slot_id"`
	Date         string              `bson:"date" json:"date"`
	Start        time.Time           `bson:"start" json:"start"`
	End          time.Time           `bson:"end" json:"end"`
	Status       AppointmentStatus   `bson:"status" json:"status"`
	Cancellation *CancellationRecord `bson:"cancellation,omitempty" json:"cancellation,omitempty"`
	Reschedules  []RescheduleEntry   `bson:"reschedules,omitempty" json:"reschedules,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updated_at"`
}

// PendingReschedule returns the single pending history entry, if any.
func (a *Appointment) PendingReschedule() *RescheduleEntry {
	for i := range a.Reschedules {
		if a.Reschedules[i].Status == ReschedulePending {
			return &a.Reschedules[i]
		}
	}
	return nil
}
