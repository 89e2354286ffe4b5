package payments

import (
	"context"
	"sync"
	"time"

	"carelink-service/internal/app/config"
	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
	"carelink-service/internal/pkg/exceptions"
	"carelink-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type paymentUsecase struct {
	PaymentRepository     contracts.PaymentRepository
	AppointmentRepository contracts.AppointmentRepository
	PatientRepository     contracts.PatientRepository
	GatewayService        contracts.PaymentGatewayService
	Coordinator           contracts.TransactionCoordinator
	EventPublisher        contracts.EventPublisher
	InternalConfig        *config.InternalConfig
	Log                   *zap.Logger
}

var (
	paymentUsecaseInstance contracts.PaymentUsecase
	oncePaymentUsecase     sync.Once
)

func NewPaymentUsecase(
	paymentRepository contracts.PaymentRepository,
	appointmentRepository contracts.AppointmentRepository,
	patientRepository contracts.PatientRepository,
	gatewayService contracts.PaymentGatewayService,
	coordinator contracts.TransactionCoordinator,
	eventPublisher contracts.EventPublisher,
	internalConfig *config.InternalConfig,
	logger *zap.Logger,
) contracts.PaymentUsecase {
	oncePaymentUsecase.Do(func() {
		instance := &paymentUsecase{
			PaymentRepository:     paymentRepository,
			AppointmentRepository: appointmentRepository,
			PatientRepository:     patientRepository,
			GatewayService:        gatewayService,
			Coordinator:           coordinator,
			EventPublisher:        eventPublisher,
			InternalConfig:        internalConfig,
			Log:                   logger,
		}
		paymentUsecaseInstance = instance
	})
	return paymentUsecaseInstance
}

func (uc *paymentUsecase) InitiatePayment(ctx context.Context, session *models.Session, appointmentID string) (*responses.CreatePayment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.InitiatePayment called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointmentID),
	)

	if session.IsNotPatient() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	appointment, err := uc.AppointmentRepository.FindOwned(ctx, appointmentID, "patientId", session.PatientID)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	// One payment row per appointment. Re-initiating returns the
	// existing row instead of minting a second tx_ref.
	existing, err := uc.PaymentRepository.FindByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &responses.CreatePayment{
			Payment:              responses.NewPayment(existing),
			PaymentInitiationURL: existing.CheckoutURL,
		}, nil
	}

	marked, err := uc.AppointmentRepository.MarkPaymentPending(ctx, appointmentID, session.PatientID)
	if err != nil {
		return nil, err
	}
	if marked == nil {
		return nil, exceptions.ErrAppointmentNotActionable(nil)
	}

	now := time.Now()
	payment := &models.Payment{
		AppointmentID: appointmentID,
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		Amount:        appointment.Fee,
		Currency:      appointment.Currency,
		Status:        models.PaymentPending,
		TxRef:         utils.GenerateTxRef(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	paymentID, err := uc.PaymentRepository.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	created, err := uc.PaymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	checkoutURL, err := uc.initializeWithGateway(ctx, created)
	if err != nil {
		uc.Log.Error("paymentUsecase.InitiatePayment error initializing checkout",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTxRefKey, created.TxRef),
			zap.Error(err),
		)
		return nil, err
	}
	created.CheckoutURL = checkoutURL

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventPaymentInitiated,
		AppointmentID: appointmentID,
		PaymentID:     paymentID,
		PatientID:     created.PatientID,
		DoctorID:      created.DoctorID,
		OccurredAt:    time.Now(),
	})

	uc.Log.Info("paymentUsecase.InitiatePayment succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, paymentID),
		zap.String(constvars.LoggingTxRefKey, created.TxRef),
	)
	return &responses.CreatePayment{
		Payment:              responses.NewPayment(created),
		PaymentInitiationURL: checkoutURL,
	}, nil
}

func (uc *paymentUsecase) InitializeCheckout(ctx context.Context, session *models.Session, paymentID string) (*responses.InitializePayment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.InitializeCheckout called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, paymentID),
	)

	if session.IsNotPatient() {
		return nil, exceptions.ErrNotMatchRoleType(nil)
	}

	payment, err := uc.PaymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.PatientID != session.PatientID {
		return nil, exceptions.ErrPaymentNotActionable(nil)
	}
	if payment.Status != models.PaymentPending {
		return nil, exceptions.ErrPaymentNotActionable(nil)
	}

	// The gateway rejects a second initialization of the same tx_ref,
	// so a stored checkout URL is reused as-is.
	if payment.CheckoutURL != "" {
		return &responses.InitializePayment{PaymentURL: payment.CheckoutURL}, nil
	}

	// No stored URL means an earlier initialize may have died after
	// reaching the gateway. Verify before charging again; a charge that
	// already went through settles here instead of being re-initialized.
	verification, err := uc.GatewayService.Verify(ctx, payment.TxRef)
	if err == nil && verification.Status == constvars.ChapaStatusSuccess {
		if _, settleErr := uc.settleCharge(ctx, payment.TxRef, verification.Reference, verification.Method, verification.SettledAt); settleErr != nil {
			return nil, settleErr
		}
		return nil, exceptions.ErrPaymentNotActionable(nil)
	}

	checkoutURL, err := uc.initializeWithGateway(ctx, payment)
	if err != nil {
		return nil, err
	}
	return &responses.InitializePayment{PaymentURL: checkoutURL}, nil
}

func (uc *paymentUsecase) initializeWithGateway(ctx context.Context, payment *models.Payment) (string, error) {
	patient, err := uc.PatientRepository.FindByID(ctx, payment.PatientID)
	if err != nil {
		return "", err
	}

	charge := &requests.GatewayCharge{
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		TxRef:       payment.TxRef,
		CallbackURL: uc.InternalConfig.PaymentGateway.CallbackURL,
		ReturnURL:   uc.InternalConfig.PaymentGateway.ReturnURL,
	}
	if patient != nil {
		charge.Email = patient.Email
		charge.FirstName = patient.FirstName
		charge.LastName = patient.LastName
	}

	checkoutURL, err := uc.GatewayService.InitializeCharge(ctx, charge)
	if err != nil {
		return "", err
	}

	if err := uc.PaymentRepository.SetCheckoutURL(ctx, payment.ID.Hex(), checkoutURL); err != nil {
		return "", err
	}
	return checkoutURL, nil
}

// HandleCallback verifies the charge with the gateway before settling;
// the redirect itself proves nothing.
func (uc *paymentUsecase) HandleCallback(ctx context.Context, txRef string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.HandleCallback called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTxRefKey, txRef),
	)

	payment, err := uc.PaymentRepository.FindByTxRef(ctx, txRef)
	if err != nil {
		return err
	}
	if payment == nil {
		return exceptions.ErrPaymentNotActionable(nil)
	}
	if payment.Status != models.PaymentPending {
		return nil
	}

	verification, err := uc.GatewayService.Verify(ctx, txRef)
	if err != nil {
		return err
	}

	switch verification.Status {
	case constvars.ChapaStatusSuccess:
		_, err = uc.settleCharge(ctx, txRef, verification.Reference, verification.Method, verification.SettledAt)
		return err
	case constvars.ChapaStatusFailed:
		_, err = uc.PaymentRepository.MarkFailed(ctx, txRef, verification.Status)
		return err
	default:
		return nil
	}
}

func (uc *paymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) (*responses.Payment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.HandleWebhook called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	// Signature verification happens before the payload is even parsed.
	if !utils.ValidateWebhookSignature(payload, signature, uc.InternalConfig.PaymentGateway.WebhookSecret) {
		return nil, exceptions.ErrWebhookSignatureInvalid(nil)
	}

	event := new(requests.ChapaWebhookEvent)
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, exceptions.ErrCannotParseJSON(err)
	}

	uc.Log.Info("paymentUsecase.HandleWebhook event verified",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingEventTypeKey, event.Event),
		zap.String(constvars.LoggingTxRefKey, event.TxRef),
	)

	var payment *models.Payment
	var err error
	switch event.Event {
	case constvars.ChapaEventChargeSuccess:
		payment, err = uc.settleCharge(ctx, event.TxRef, event.Reference, event.PaymentMethod, time.Now())
	case constvars.ChapaEventChargeFailed:
		payment, err = uc.failCharge(ctx, event.TxRef, event.Status)
	case constvars.ChapaEventRefundComplete:
		payment, err = uc.settleRefund(ctx, event.RefundRef)
	default:
		// Unknown event types are acknowledged without local effect so
		// the gateway stops redelivering them.
		payment, err = uc.PaymentRepository.FindByTxRef(ctx, event.TxRef)
	}
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, exceptions.ErrPaymentNotActionable(nil)
	}

	response := responses.NewPayment(payment)
	return &response, nil
}

// settleCharge is the idempotent settlement path shared by webhook and
// callback. The paid flip and the appointment confirmation commit in one
// transaction; a failure aborts both and the gateway redelivers. A
// conditional-update miss means an earlier delivery already settled.
func (uc *paymentUsecase) settleCharge(ctx context.Context, txRef, gatewayRef, method string, settledAt time.Time) (*models.Payment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	var payment *models.Payment
	err := uc.Coordinator.WithTransaction(ctx, func(ctx context.Context) error {
		paid, err := uc.PaymentRepository.MarkPaid(ctx, txRef, gatewayRef, method, settledAt)
		if err != nil {
			return err
		}
		if paid == nil {
			return nil
		}
		payment = paid
		confirmed, err := uc.AppointmentRepository.MarkConfirmed(ctx, paid.AppointmentID)
		if err != nil {
			return err
		}
		if confirmed == nil {
			uc.Log.Error("paymentUsecase.settleCharge appointment not confirmable after settlement",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingAppointmentIDKey, paid.AppointmentID),
				zap.String(constvars.LoggingTxRefKey, txRef),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		// Redelivery of an already-settled charge. The confirm is still
		// retried so an appointment left unconfirmed by an older row
		// catches up; the conditional filter makes the retry a no-op
		// when the appointment already moved on.
		stored, err := uc.PaymentRepository.FindByTxRef(ctx, txRef)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, nil
		}
		if stored.Status == models.PaymentPaid {
			if _, err := uc.AppointmentRepository.MarkConfirmed(ctx, stored.AppointmentID); err != nil {
				return nil, err
			}
		}
		return stored, nil
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventPaymentSettled,
		AppointmentID: payment.AppointmentID,
		PaymentID:     payment.ID.Hex(),
		PatientID:     payment.PatientID,
		DoctorID:      payment.DoctorID,
		OccurredAt:    time.Now(),
	})

	uc.Log.Info("paymentUsecase.settleCharge succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTxRefKey, txRef),
	)
	return payment, nil
}

func (uc *paymentUsecase) failCharge(ctx context.Context, txRef, reason string) (*models.Payment, error) {
	payment, err := uc.PaymentRepository.MarkFailed(ctx, txRef, reason)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return uc.PaymentRepository.FindByTxRef(ctx, txRef)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventPaymentFailed,
		AppointmentID: payment.AppointmentID,
		PaymentID:     payment.ID.Hex(),
		PatientID:     payment.PatientID,
		DoctorID:      payment.DoctorID,
		OccurredAt:    time.Now(),
	})
	return payment, nil
}

func (uc *paymentUsecase) settleRefund(ctx context.Context, refundRef string) (*models.Payment, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	payment, err := uc.PaymentRepository.MarkRefundProcessed(ctx, refundRef, time.Now())
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return uc.PaymentRepository.FindByRefundRef(ctx, refundRef)
	}

	// The final status depends on how much of the payment is now back
	// with the patient.
	status := models.PaymentPartiallyRefunded
	if payment.RefundedTotal() >= payment.Amount {
		status = models.PaymentRefunded
	}
	if err := uc.PaymentRepository.UpdateStatus(ctx, payment.ID.Hex(), status); err != nil {
		return nil, err
	}
	payment.Status = status

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventRefundSettled,
		AppointmentID: payment.AppointmentID,
		PaymentID:     payment.ID.Hex(),
		PatientID:     payment.PatientID,
		DoctorID:      payment.DoctorID,
		OccurredAt:    time.Now(),
	})

	uc.Log.Info("paymentUsecase.settleRefund succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingRefundIDKey, refundRef),
		zap.String(constvars.LoggingGatewayStatusKey, string(status)),
	)
	return payment, nil
}

// QueueCancellationRefund runs during appointment cancellation. An
// unsettled payment is cancelled outright; a settled one gets a tiered
// refund queued against the gateway.
func (uc *paymentUsecase) QueueCancellationRefund(ctx context.Context, appointment *models.Appointment, cancellerRole, reason string) (float64, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("paymentUsecase.QueueCancellationRefund called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAppointmentIDKey, appointment.ID.Hex()),
	)

	payment, err := uc.PaymentRepository.FindByAppointmentID(ctx, appointment.ID.Hex())
	if err != nil {
		return 0, err
	}
	if payment == nil {
		return 0, nil
	}

	switch payment.Status {
	case models.PaymentPending, models.PaymentFailed:
		_, err := uc.PaymentRepository.MarkCancelled(ctx, payment.ID.Hex())
		return 0, err
	case models.PaymentPaid, models.PaymentPartiallyRefunded:
		// fallthrough to the refund path below
	case models.PaymentRefundInitiated:
		return 0, exceptions.ErrRefundAlreadyPending(nil)
	default:
		return 0, nil
	}

	amount := RefundAmount(cancellerRole, payment.Amount, appointment.Start, time.Now())
	if amount == 0 {
		return 0, nil
	}

	if payment.PendingRefund() != nil {
		return 0, exceptions.ErrRefundAlreadyPending(nil)
	}
	if payment.CommittedRefundTotal()+amount > payment.Amount {
		return 0, exceptions.ErrRefundExceedsPayment(nil)
	}

	acknowledgment, err := uc.GatewayService.InitiateRefund(ctx, payment.TxRef, amount, reason, map[string]string{
		"appointment_id": appointment.ID.Hex(),
	})
	if err != nil {
		return 0, err
	}

	refund := models.Refund{
		ID:        utils.GenerateRefundID(),
		Amount:    amount,
		Reason:    reason,
		Status:    models.RefundPending,
		RefundRef: acknowledgment.RefundRef,
		CreatedAt: time.Now(),
	}
	updated, err := uc.PaymentRepository.AppendRefund(ctx, payment.ID.Hex(), refund)
	if err != nil {
		return 0, err
	}
	if updated == nil {
		// The gateway accepted the refund but a concurrent attempt beat
		// this one to the queue. The refund webhook still reconciles by
		// refund_ref, so log loudly and surface the conflict.
		uc.Log.Error("paymentUsecase.QueueCancellationRefund refund accepted by gateway but append missed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentIDKey, payment.ID.Hex()),
			zap.String(constvars.LoggingRefundIDKey, acknowledgment.RefundRef),
		)
		return 0, exceptions.ErrRefundAlreadyPending(nil)
	}

	uc.publishEvent(ctx, models.DomainEvent{
		Type:          models.EventRefundInitiated,
		AppointmentID: appointment.ID.Hex(),
		PaymentID:     payment.ID.Hex(),
		PatientID:     payment.PatientID,
		DoctorID:      payment.DoctorID,
		OccurredAt:    time.Now(),
		Metadata:      map[string]string{"cancelled_by": cancellerRole},
	})

	uc.Log.Info("paymentUsecase.QueueCancellationRefund succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPaymentIDKey, payment.ID.Hex()),
		zap.Float64(constvars.LoggingRefundAmountKey, amount),
	)
	return amount, nil
}

func (uc *paymentUsecase) publishEvent(ctx context.Context, event models.DomainEvent) {
	if err := uc.EventPublisher.Publish(ctx, event); err != nil {
		requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
		uc.Log.Error("paymentUsecase.publishEvent error publishing event",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingEventTypeKey, event.Type),
			zap.Error(err),
		)
	}
}
