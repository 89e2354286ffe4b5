package schedules

import (
	"context"
	"sync"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/exceptions"
	"carelink-service/internal/pkg/utils"

	"go.uber.org/zap"
)

type scheduleUsecase struct {
	ScheduleRepository contracts.ScheduleRepository
	DoctorRepository   contracts.DoctorRepository
	Log                *zap.Logger
}

var (
	scheduleUsecaseInstance contracts.ScheduleUsecase
	onceScheduleUsecase     sync.Once
)

func NewScheduleUsecase(
	scheduleRepository contracts.ScheduleRepository,
	doctorRepository contracts.DoctorRepository,
	logger *zap.Logger,
) contracts.ScheduleUsecase {
	onceScheduleUsecase.Do(func() {
		instance := &scheduleUsecase{
			ScheduleRepository: scheduleRepository,
			DoctorRepository:   doctorRepository,
			Log:                logger,
		}
		scheduleUsecaseInstance = instance
	})
	return scheduleUsecaseInstance
}

func (uc *scheduleUsecase) CreateSlots(ctx context.Context, session *models.Session, doctorID string, request *requests.CreateSlots) ([]models.Slot, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("scheduleUsecase.CreateSlots called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDoctorIDKey, doctorID),
	)

	if session.IsNotDoctor() || session.DoctorID != doctorID {
		return nil, exceptions.ErrNotResourceOwner(nil)
	}

	slots := make([]models.Slot, 0, len(request.Slots))
	for _, newSlot := range request.Slots {
		slots = append(slots, models.Slot{
			ID:        utils.GenerateSlotID(),
			Date:      newSlot.Date,
			StartTime: newSlot.StartTime,
			EndTime:   newSlot.EndTime,
			IsBooked:  false,
		})
	}

	if err := uc.ScheduleRepository.AddSlots(ctx, doctorID, slots); err != nil {
		uc.Log.Error("scheduleUsecase.CreateSlots error adding slots",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.Log.Info("scheduleUsecase.CreateSlots succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int("slot_count", len(slots)),
	)
	return slots, nil
}

func (uc *scheduleUsecase) ListFreeSlots(ctx context.Context, doctorID string) ([]models.Slot, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("scheduleUsecase.ListFreeSlots called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDoctorIDKey, doctorID),
	)

	doctor, err := uc.DoctorRepository.FindByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, exceptions.ErrDoctorNotFound(nil)
	}

	return uc.ScheduleRepository.FindFreeSlots(ctx, doctorID)
}
