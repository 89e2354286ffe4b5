package appointments

import (
	"context"
	"sync"
	"time"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
	"carelink-service/internal/pkg/exceptions"
	"carelink-service/internal/pkg/utils"

	"go.uber.org/zap"
)

// cancellableStatuses are the source states from which either party may
// cancel. Terminal states and already-cancelled appointments miss the
// transition filter.
var cancellableStatuses = []models.AppointmentStatus{
	models.AppointmentPending,
	models.AppointmentAccepted,
	models.AppointmentPaymentPending,
	models.AppointmentConfirmed,
	models.AppointmentRescheduled,
}

// reschedulableStatuses are the states where a reschedule needs the
// counterparty's approval. A pending appointment is swapped in place
// instead.
var reschedulableStatuses = []models.AppointmentStatus{
	models.AppointmentAccepted,
	models.AppointmentConfirmed,
	models.AppointmentRescheduled,
}

type appointmentUsecase struct {
	AppointmentRepository contracts.AppointmentRepository
	ScheduleRepository    contracts.ScheduleRepository
	SlotReserver          contracts.SlotReserver
	DoctorRepository      contracts.DoctorRepository
	PaymentUsecase        contracts.PaymentUsecase
	Coordinator           contracts.TransactionCoordinator
	EventPublisher        contracts.EventPublisher
	Log                   *zap.Logger
}

var (
	appointmentUsecaseInstance contracts.AppointmentUsecase
	onceAppointmentUsecase     sync.Once
)

func NewAppointmentUsecase(
	appointmentRepository contracts.AppointmentRepository,
	scheduleRepository contracts.ScheduleRepository,
	slotReserver contracts.SlotReserver,
	doctorRepository contracts.DoctorRepository,
	paymentUsecase contracts.PaymentUsecase,
	coordinator contracts.TransactionCoordinator,
	eventPublisher contracts.EventPublisher,
	logger *zap.Logger,
) contracts.AppointmentUsecase {
	onceAppointmentUsecase.Do(func() {
		instance := &appointmentUsecase{
			AppointmentRepository: appointmentRepository,
			ScheduleRepository:    scheduleRepository,
			SlotReserver:          slotReserver,
			DoctorRepository:      doctorRepository,
			PaymentUsecase:        paymentUsecase,
			Coordinator:           coordinator,
			EventPublisher:        eventPublisher,
			Log:                   logger,
		}
		appointmentUsecaseInstance = instance
	})
	return appointmentUsecaseInstance
}

func (uc *appointmentUsecase) Request(ctx context.Context, session *models.Session, doctorID string, request *requests.CreateAppointment) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.Request called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDoctorIDKey, doctorID),
		zap.String(constvars.LoggingSlotIDKey, request.SlotID),
	)

	if session.IsNotPatient() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	doctor, err := uc.DoctorRepository.FindByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, exceptions.ErrDoctorNotFound(nil)
	}

	window, err := uc.SlotReserver.Reserve(ctx, doctorID, request.SlotID, session.PatientID, "")
	if err != nil {
		uc.Log.Error("appointmentUsecase.Request error reserving slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	currency := doctor.Currency
	if currency == "" {
		currency = constvars.CurrencyEthiopianBirr
	}

	now := time.Now()
	appointment := &models.Appointment{
		PatientID: session.PatientID,
		DoctorID:  doctorID,
		Type:      request.AppointmentType,
		Reason:    request.Reason,
		Fee:       doctor.Rate,
		Currency:  currency,
		SlotID:    window.SlotID,
		Date:      window.Date,
		Start:     window.Start,
		End:       window.End,
		Status:    models.AppointmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = uc.Coordinator.WithCompensation(ctx,
		func(ctx context.Context) error {
			appointmentID, err := uc.AppointmentRepository.Create(ctx, appointment)
			if err != nil {
				return err
			}
			created, err := uc.AppointmentRepository.FindByID(ctx, appointmentID)
			if err != nil {
				return err
			}
			appointment = created
			return nil
		},
		func(ctx context.Context) error {
			return uc.SlotReserver.Release(ctx, doctorID, window.SlotID)
		},
	)
	if err != nil {
		return nil, err
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentRequested,
		AppointmentID: appointment.ID.Hex(),
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		OccurredAt:    time.Now(),
	})

	uc.Log.Info("appointmentUsecase.Request succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointment.ID.Hex()),
	)
	response := responses.NewAppointment(appointment)
	return &response, nil
}

func (uc *appointmentUsecase) Accept(ctx context.Context, session *models.Session, appointmentID string) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.Accept called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)

	if session.IsNotDoctor() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	appointment, err := uc.AppointmentRepository.MarkAccepted(ctx, appointmentID, session.DoctorID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentAccepted,
		AppointmentID: appointment.ID.Hex(),
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		OccurredAt:    time.Now(),
	})

	response := responses.NewAppointment(appointment)
	return &response, nil
}

func (uc *appointmentUsecase) Reject(ctx context.Context, session *models.Session, appointmentID string, request *requests.CancelAppointment) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.Reject called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)

	if session.IsNotDoctor() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	record := models.CancellationRecord{
		Reason:      request.CancellationReason,
		CancelledBy: session.DoctorID,
		Role:        constvars.RoleDoctor,
		CancelledAt: time.Now(),
	}
	appointment, err := uc.AppointmentRepository.MarkCancelled(ctx, appointmentID,
		[]models.AppointmentStatus{models.AppointmentPending},
		"doctorId", session.DoctorID, record)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	if err := uc.SlotReserver.Release(ctx, appointment.DoctorID, appointment.SlotID); err != nil {
		uc.Log.Error("appointmentUsecase.Reject error releasing slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentCancelled,
		AppointmentID: appointment.ID.Hex(),
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		OccurredAt:    time.Now(),
	})

	response := responses.NewAppointment(appointment)
	return &response, nil
}

func (uc *appointmentUsecase) Cancel(ctx context.Context, session *models.Session, appointmentID string, request *requests.CancelAppointment) (*responses.CancelAppointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.Cancel called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)

	ownerField, err := ownerFieldForRole(session)
	if err != nil {
		return nil, err
	}

	existing, err := uc.AppointmentRepository.FindOwned(ctx, appointmentID, ownerField, session.ActorID())
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}
	previousStatus := existing.Status

	record := models.CancellationRecord{
		Reason:      request.CancellationReason,
		CancelledBy: session.ActorID(),
		Role:        session.Role,
		CancelledAt: time.Now(),
	}

	var appointment *models.Appointment
	var refundAmount float64
	err = uc.Coordinator.WithCompensation(ctx,
		func(ctx context.Context) error {
			cancelled, err := uc.AppointmentRepository.MarkCancelled(ctx, appointmentID,
				cancellableStatuses, ownerField, session.ActorID(), record)
			if err != nil {
				return err
			}
			if cancelled == nil {
				return exceptions.ErrAppointmentNotActionable(nil)
			}
			appointment = cancelled
			amount, err := uc.PaymentUsecase.QueueCancellationRefund(ctx, cancelled, session.Role, request.CancellationReason)
			if err != nil {
				return err
			}
			refundAmount = amount
			return nil
		},
		func(ctx context.Context) error {
			// A nil appointment means the cancel itself missed; there is
			// nothing to roll back and the concurrent writer's state
			// must stand.
			if appointment == nil {
				return nil
			}
			_, err := uc.AppointmentRepository.ReinstateCancelled(ctx, appointmentID, previousStatus)
			return err
		},
	)
	if err != nil {
		uc.Log.Error("appointmentUsecase.Cancel error cancelling appointment",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	// Cancellation and refund both settled; the window frees for other
	// patients.
	if err := uc.SlotReserver.Release(ctx, appointment.DoctorID, appointment.SlotID); err != nil {
		uc.Log.Error("appointmentUsecase.Cancel error releasing slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentCancelled,
		AppointmentID: appointment.ID.Hex(),
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		OccurredAt:    time.Now(),
		Metadata:      map[string]string{"cancelled_by": session.Role},
	})

	uc.Log.Info("appointmentUsecase.Cancel succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
		zap.Float64(constvars.LoggingRefundAmountKey, refundAmount),
	)
	return &responses.CancelAppointment{
		Appointment:  responses.NewAppointment(appointment),
		RefundAmount: refundAmount,
	}, nil
}

func (uc *appointmentUsecase) RequestReschedule(ctx context.Context, session *models.Session, appointmentID string, request *requests.RescheduleAppointment) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.RequestReschedule called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
		zap.String(constvars.LoggingSlotIDKey, request.SlotID),
	)

	ownerField, err := ownerFieldForRole(session)
	if err != nil {
		return nil, err
	}

	appointment, err := uc.AppointmentRepository.FindOwned(ctx, appointmentID, ownerField, session.ActorID())
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	if appointment.Status == models.AppointmentPending {
		return uc.swapPendingWindow(ctx, session, appointment, request)
	}

	if appointment.PendingReschedule() != nil {
		return nil, exceptions.ErrReschedulePendingExists(nil)
	}
	if len(appointment.Reschedules) >= constvars.RescheduleHistoryCapacity {
		return nil, exceptions.ErrRescheduleHistoryFull(nil)
	}

	newSlot, err := uc.ScheduleRepository.FindSlot(ctx, appointment.DoctorID, request.SlotID)
	if err != nil {
		return nil, err
	}
	if newSlot == nil {
		return nil, exceptions.ErrSlotNotFound(nil)
	}
	newStart, newEnd, err := newSlot.Window()
	if err != nil {
		return nil, exceptions.ErrCannotParseTime(err)
	}

	entry := models.RescheduleEntry{
		PreviousSlotID: appointment.SlotID,
		PreviousStart:  appointment.Start,
		PreviousEnd:    appointment.End,
		NewSlotID:      newSlot.ID,
		NewDate:        newSlot.Date,
		NewStart:       newStart,
		NewEnd:         newEnd,
		Reason:         request.Reason,
		RequestedBy:    session.ActorID(),
		RequesterRole:  session.Role,
		Status:         models.ReschedulePending,
		RequestedAt:    time.Now(),
	}

	updated, err := uc.AppointmentRepository.AppendReschedule(ctx, appointmentID, reschedulableStatuses, entry)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// The filter re-checks all append preconditions; a miss here
		// means a concurrent writer got there first.
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	uc.Log.Info("appointmentUsecase.RequestReschedule succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)
	response := responses.NewAppointment(updated)
	return &response, nil
}

// swapPendingWindow moves a pending appointment to a new slot without
// counterparty approval; the doctor has not committed to anything yet.
// The old slot frees first so the patient can swap to an adjacent
// window; any failure afterwards re-blocks it.
func (uc *appointmentUsecase) swapPendingWindow(ctx context.Context, session *models.Session, appointment *models.Appointment, request *requests.RescheduleAppointment) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	if err := uc.SlotReserver.Release(ctx, appointment.DoctorID, appointment.SlotID); err != nil {
		return nil, err
	}

	var window *models.ReservedWindow
	var updated *models.Appointment
	err := uc.Coordinator.WithCompensation(ctx,
		func(ctx context.Context) error {
			reserved, err := uc.SlotReserver.Reserve(ctx, appointment.DoctorID, request.SlotID, appointment.PatientID, appointment.ID.Hex())
			if err != nil {
				return err
			}
			window = reserved
			updated, err = uc.AppointmentRepository.ReplaceWindow(ctx, appointment.ID.Hex(), window.SlotID, window.Date, window.Start, window.End)
			if err != nil {
				return err
			}
			if updated == nil {
				return exceptions.ErrAppointmentNotActionable(nil)
			}
			return nil
		},
		func(ctx context.Context) error {
			if window != nil && updated == nil {
				if err := uc.SlotReserver.Release(ctx, appointment.DoctorID, window.SlotID); err != nil {
					return err
				}
			}
			return uc.SlotReserver.Reblock(ctx, appointment.DoctorID, appointment.SlotID, appointment.PatientID)
		},
	)
	if err != nil {
		uc.Log.Error("appointmentUsecase.swapPendingWindow error swapping window",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	response := responses.NewAppointment(updated)
	return &response, nil
}

func (uc *appointmentUsecase) RespondReschedule(ctx context.Context, session *models.Session, appointmentID string, approve bool) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.RespondReschedule called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
		zap.Bool("approve", approve),
	)

	appointment, err := uc.AppointmentRepository.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	party := utils.ResolveParty(session, appointment)
	if !party.IsOwner {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	pending := appointment.PendingReschedule()
	if pending == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}
	if pending.RequestedBy == party.ActorID {
		return nil, exceptions.ErrRescheduleSelfResponse(nil)
	}

	if !approve {
		resolved, err := uc.AppointmentRepository.ResolveReschedule(ctx, appointmentID, pending.RequestedBy, pending.RequestedAt, false, time.Now())
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return nil, exceptions.ErrAppointmentNotActionable(nil)
		}
		response := responses.NewAppointment(resolved)
		return &response, nil
	}

	window, err := uc.SlotReserver.Reserve(ctx, appointment.DoctorID, pending.NewSlotID, appointment.PatientID, appointmentID)
	if err != nil {
		return nil, err
	}

	var resolved *models.Appointment
	err = uc.Coordinator.WithCompensation(ctx,
		func(ctx context.Context) error {
			resolved, err = uc.AppointmentRepository.ResolveReschedule(ctx, appointmentID, pending.RequestedBy, pending.RequestedAt, true, time.Now())
			if err != nil {
				return err
			}
			if resolved == nil {
				return exceptions.ErrAppointmentNotActionable(nil)
			}
			return nil
		},
		func(ctx context.Context) error {
			return uc.SlotReserver.Release(ctx, appointment.DoctorID, window.SlotID)
		},
	)
	if err != nil {
		return nil, err
	}

	if err := uc.SlotReserver.Release(ctx, appointment.DoctorID, pending.PreviousSlotID); err != nil {
		uc.Log.Error("appointmentUsecase.RespondReschedule error releasing previous slot",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentRescheduled,
		AppointmentID: resolved.ID.Hex(),
		PatientID:     resolved.PatientID,
		DoctorID:      resolved.DoctorID,
		OccurredAt:    time.Now(),
	})

	response := responses.NewAppointment(resolved)
	return &response, nil
}

func (uc *appointmentUsecase) Complete(ctx context.Context, session *models.Session, appointmentID string, request *requests.CompleteAppointment) (*responses.Appointment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("appointmentUsecase.Complete called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)

	if session.IsNotDoctor() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	appointment, err := uc.AppointmentRepository.FindOwned(ctx, appointmentID, "doctorId", session.DoctorID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}
	if time.Now().Before(appointment.End) {
		return nil, exceptions.ErrAppointmentNotEnded(nil)
	}

	status := models.AppointmentCompleted
	if request.NoShow {
		status = models.AppointmentNoShow
	}
	completed, err := uc.AppointmentRepository.MarkCompleted(ctx, appointmentID, session.DoctorID, status)
	if err != nil {
		return nil, err
	}
	if completed == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventAppointmentCompleted,
		AppointmentID: completed.ID.Hex(),
		PatientID:     completed.PatientID,
		DoctorID:      completed.DoctorID,
		OccurredAt:    time.Now(),
		Metadata:      map[string]string{"outcome": string(status)},
	})

	response := responses.NewAppointment(completed)
	return &response, nil
}

// publishEvent is fire-and-forget; a broker outage never fails the
// request that produced the event.
func (uc *appointmentUsecase) publishEvent(ctx context.Context, event models.DomainEvent) {
	if err := uc.EventPublisher.Publish(ctx, event); err != nil {
		requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
		uc.Log.Error("appointmentUsecase.publishEvent error publishing event",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingEventTypeKey, event.Type),
			zap.Error(err),
		)
	}
}

func ownerFieldForRole(session *models.Session) (string, error) {
	switch {
	case session.IsPatient():
		return "patientId", nil
	case session.IsDoctor():
		return "doctorId", nil
	default:
		return "", exceptions.ErrNotMatchRoleType(nil)
	}
}
