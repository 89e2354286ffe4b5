package contracts

import (
	"context"
	"time"

	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
)

// AppointmentRepository persists appointment documents. Every
// transition method is a single conditional update scoped by id, the
// allowed source statuses and (where relevant) the owning party, so a
// wrong-state or non-owner call misses the filter instead of racing.
// A nil appointment with nil error means the filter matched nothing.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) (string, error)
	FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error)
	FindOwned(ctx context.Context, appointmentID, ownerField, ownerID string) (*models.Appointment, error)
	HasActiveOverlap(ctx context.Context, partyField, partyID string, start, end time.Time, excludeID string) (bool, error)

	MarkAccepted(ctx context.Context, appointmentID, doctorID string) (*models.Appointment, error)
	MarkCancelled(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, ownerField, ownerID string, record models.CancellationRecord) (*models.Appointment, error)
	MarkPaymentPending(ctx context.Context, appointmentID, patientID string) (*models.Appointment, error)
	MarkConfirmed(ctx context.Context, appointmentID string) (*models.Appointment, error)
	MarkCompleted(ctx context.Context, appointmentID, doctorID string, status models.AppointmentStatus) (*models.Appointment, error)
	// ReinstateCancelled rolls a just-cancelled appointment back to the
	// given status and drops its cancellation record. Used as the
	// compensation when a downstream step of a cancellation fails.
	ReinstateCancelled(ctx context.Context, appointmentID string, status models.AppointmentStatus) (*models.Appointment, error)

	// ReplaceWindow mutates a pending appointment's window in place,
	// used for reschedules that need no counterparty approval.
	ReplaceWindow(ctx context.Context, appointmentID, slotID, date string, start, end time.Time) (*models.Appointment, error)
	// AppendReschedule inserts a pending history entry conditioned on
	// no other pending entry existing and the history being under
	// capacity.
	AppendReschedule(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, entry models.RescheduleEntry) (*models.Appointment, error)
	// ResolveReschedule settles the pending entry identified by
	// requestedBy and requestedAt; on approval the appointment window is
	// replaced and status becomes rescheduled. If the pending entry was
	// swapped between the caller's read and this write, the filter
	// misses and nil is returned.
	ResolveReschedule(ctx context.Context, appointmentID, requestedBy string, requestedAt time.Time, approve bool, respondedAt time.Time) (*models.Appointment, error)
}

type AppointmentUsecase interface {
	Request(ctx context.Context, session *models.Session, doctorID string, request *requests.CreateAppointment) (*responses.Appointment, error)
	Accept(ctx context.Context, session *models.Session, appointmentID string) (*responses.Appointment, error)
	Reject(ctx context.Context, session *models.Session, appointmentID string, request *requests.CancelAppointment) (*responses.Appointment, error)
	Cancel(ctx context.Context, session *models.Session, appointmentID string, request *requests.CancelAppointment) (*responses.CancelAppointment, error)
	RequestReschedule(ctx context.Context, session *models.Session, appointmentID string, request *requests.RescheduleAppointment) (*responses.Appointment, error)
	RespondReschedule(ctx context.Context, session *models.Session, appointmentID string, approve bool) (*responses.Appointment, error)
	Complete(ctx context.Context, session *models.Session, appointmentID string, request *requests.CompleteAppointment) (*responses.Appointment, error)
}
