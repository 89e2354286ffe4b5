package models

import (
	"time"

	"carelink-service/internal/pkg/constvars"
)

// Session is the request-scoped identity parsed from the externally
// issued session blob. It replaces any process-wide mutable identity
// state.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	PatientID string    `json:"patient_id,omitempty"`
	DoctorID  string    `json:"doctor_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) IsPatient() bool {
	return s.Role == constvars.RolePatient
}

func (s *Session) IsDoctor() bool {
	return s.Role == constvars.RoleDoctor
}

func (s *Session) IsNotPatient() bool {
	return !s.IsPatient()
}

func (s *Session) IsNotDoctor() bool {
	return !s.IsDoctor()
}

// ActorID returns the profile identifier matching the session role.
func (s *Session) ActorID() string {
	if s.IsDoctor() {
		return s.DoctorID
	}
	return s.PatientID
}
