package utils

import (
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
)

// Party describes how a session actor relates to an appointment.
type Party struct {
	Role    string
	ActorID string
	IsOwner bool
}

// ResolveParty maps the session onto the appointment's patient or doctor
// side. IsOwner is false when the actor belongs to neither side.
func ResolveParty(session *models.Session, appointment *models.Appointment) Party {
	party := Party{Role: session.Role, ActorID: session.ActorID()}
	switch {
	case session.IsPatient() && session.PatientID == appointment.PatientID:
		party.IsOwner = true
	case session.IsDoctor() && session.DoctorID == appointment.DoctorID:
		party.IsOwner = true
	}
	return party
}

// CounterpartRole returns the opposite side of an appointment.
func CounterpartRole(role string) string {
	if role == constvars.RolePatient {
		return constvars.RoleDoctor
	}
	return constvars.RolePatient
}
