package contracts

import (
	"context"
	"time"

	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/dto/requests"
)

// ScheduleRepository persists per-doctor schedule documents. The
// conditional single-document update is the mutual-exclusion primitive
// for slot reservation; there is no external lock manager.
type ScheduleRepository interface {
	FindSlot(ctx context.Context, doctorID, slotID string) (*models.Slot, error)
	// MarkSlotBooked flips the slot occupied conditioned on it being
	// free. Returns false when the condition matched no document, i.e.
	// a concurrent caller won the flip.
	MarkSlotBooked(ctx context.Context, doctorID, slotID, patientID string, at time.Time) (bool, error)
	// ReleaseSlot frees the slot conditioned on it being occupied.
	// Releasing an already-free slot is a no-op, not an error.
	ReleaseSlot(ctx context.Context, doctorID, slotID string) error
	AddSlots(ctx context.Context, doctorID string, slots []models.Slot) error
	FindFreeSlots(ctx context.Context, doctorID string) ([]models.Slot, error)
}

// SlotReserver is the conflict resolver: it owns the unoccupied to
// occupied transition and the business-level overlap validation that
// follows it. excludeAppointmentID skips the caller's own appointment
// during overlap checks when rescheduling.
type SlotReserver interface {
	Reserve(ctx context.Context, doctorID, slotID, patientID, excludeAppointmentID string) (*models.ReservedWindow, error)
	Release(ctx context.Context, doctorID, slotID string) error
	// Reblock re-flips a previously released slot, used when a
	// pending-status appointment moves away from its window before any
	// counterparty commitment exists.
	Reblock(ctx context.Context, doctorID, slotID, patientID string) error
}

type ScheduleUsecase interface {
	CreateSlots(ctx context.Context, session *models.Session, doctorID string, request *requests.CreateSlots) ([]models.Slot, error)
	ListFreeSlots(ctx context.Context, doctorID string) ([]models.Slot, error)
}
