package schedules

import (
	"context"
	"sync"
	"time"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/exceptions"

	"go.uber.org/zap"
)

type slotReserver struct {
	ScheduleRepository    contracts.ScheduleRepository
	AppointmentRepository contracts.AppointmentRepository
	Coordinator           contracts.TransactionCoordinator
	Log                   *zap.Logger
}

var (
	slotReserverInstance contracts.SlotReserver
	onceSlotReserver     sync.Once
)

func NewSlotReserver(
	scheduleRepository contracts.ScheduleRepository,
	appointmentRepository contracts.AppointmentRepository,
	coordinator contracts.TransactionCoordinator,
	logger *zap.Logger,
) contracts.SlotReserver {
	onceSlotReserver.Do(func() {
		instance := &slotReserver{
			ScheduleRepository:    scheduleRepository,
			AppointmentRepository: appointmentRepository,
			Coordinator:           coordinator,
			Log:                   logger,
		}
		slotReserverInstance = instance
	})
	return slotReserverInstance
}

// Reserve flips the slot occupied, then runs the overlap validation for
// both parties. Validation happens after the flip on purpose: the flip
// is what serializes concurrent callers, so the overlap check never
// races. A failed check releases the slot before returning.
func (s *slotReserver) Reserve(ctx context.Context, doctorID, slotID, patientID, excludeAppointmentID string) (*models.ReservedWindow, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	s.Log.Info("slotReserver.Reserve called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDoctorIDKey, doctorID),
		zap.String(constvars.LoggingSlotIDKey, slotID),
	)

	slot, err := s.ScheduleRepository.FindSlot(ctx, doctorID, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, exceptions.ErrSlotNotFound(nil)
	}

	booked, err := s.ScheduleRepository.MarkSlotBooked(ctx, doctorID, slotID, patientID, time.Now())
	if err != nil {
		return nil, err
	}
	if !booked {
		s.Log.Info("slotReserver.Reserve lost conditional flip",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingSlotIDKey, slotID),
		)
		return nil, exceptions.ErrSlotAlreadyBooked(nil)
	}

	start, end, err := slot.Window()
	if err != nil {
		if releaseErr := s.ScheduleRepository.ReleaseSlot(ctx, doctorID, slotID); releaseErr != nil {
			s.Log.Error("slotReserver.Reserve failed to release slot after window parse error",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(releaseErr),
			)
		}
		return nil, exceptions.ErrCannotParseTime(err)
	}

	err = s.Coordinator.WithCompensation(ctx,
		func(ctx context.Context) error {
			patientOverlap, err := s.AppointmentRepository.HasActiveOverlap(ctx, "patientId", patientID, start, end, excludeAppointmentID)
			if err != nil {
				return err
			}
			if patientOverlap {
				return exceptions.ErrBookingOverlap(nil)
			}
			doctorOverlap, err := s.AppointmentRepository.HasActiveOverlap(ctx, "doctorId", doctorID, start, end, excludeAppointmentID)
			if err != nil {
				return err
			}
			if doctorOverlap {
				return exceptions.ErrBookingOverlap(nil)
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.ScheduleRepository.ReleaseSlot(ctx, doctorID, slotID)
		},
	)
	if err != nil {
		return nil, err
	}

	s.Log.Info("slotReserver.Reserve succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingSlotIDKey, slotID),
	)
	return &models.ReservedWindow{
		SlotID: slotID,
		Date:   slot.Date,
		Start:  start,
		End:    end,
	}, nil
}

func (s *slotReserver) Release(ctx context.Context, doctorID, slotID string) error {
	return s.ScheduleRepository.ReleaseSlot(ctx, doctorID, slotID)
}

func (s *slotReserver) Reblock(ctx context.Context, doctorID, slotID, patientID string) error {
	booked, err := s.ScheduleRepository.MarkSlotBooked(ctx, doctorID, slotID, patientID, time.Now())
	if err != nil {
		return err
	}
	if !booked {
		return exceptions.ErrSlotAlreadyBooked(nil)
	}
	return nil
}
