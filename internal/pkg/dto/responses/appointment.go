package responses

import (
	"time"

	"carelink-service/internal/app/models"
)

type Appointment struct {
	ID           string                     `json:"id"`
	PatientID    string                     `json:"patient_id"`
	DoctorID     string                     `json:"doctor_id"`
	Type         string                     `json:"type"`
	Reason       string                     `json:"reason"`
	Fee          float64                    `json:"fee"`
	Currency     string                     `json:"currency"`
	SlotID       string                     `json:"slot_id"`
	Start        time.Time                  `json:"start"`
	End          time.Time                  `json:"end"`
	Status       string                     `json:"status"`
	Cancellation *models.CancellationRecord `json:"cancellation,omitempty"`
	Reschedules  []models.RescheduleEntry   `json:"reschedules,omitempty"`
}

type CancelAppointment struct {
	Appointment  Appointment `json:"appointment"`
	RefundAmount float64     `json:"refund_amount"`
}

func NewAppointment(appointment *models.Appointment) Appointment {
	return Appointment{
		ID:           appointment.ID.Hex(),
		PatientID:    appointment.PatientID,
		DoctorID:     appointment.DoctorID,
		Type:         appointment.Type,
		Reason:       appointment.Reason,
		Fee:          appointment.Fee,
		Currency:     appointment.Currency,
		SlotID:       appointment.SlotID,
		Start:        appointment.Start,
		End:          appointment.End,
		Status:       string(appointment.Status),
		Cancellation: appointment.Cancellation,
		Reschedules:  appointment.Reschedules,
	}
}
