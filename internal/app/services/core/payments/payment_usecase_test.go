package payments

import (
	"context"
	"testing"
	"time"

	"carelink-service/internal/app/config"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
	"carelink-service/internal/pkg/exceptions"
	"carelink-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) (string, error) {
	args := m.Called(ctx, payment)
	return args.String(0), args.Error(1)
}
func (m *MockPaymentRepository) FindByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) FindByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error) {
	args := m.Called(ctx, appointmentID)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) FindByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	args := m.Called(ctx, txRef)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) FindByRefundRef(ctx context.Context, refundRef string) (*models.Payment, error) {
	args := m.Called(ctx, refundRef)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) SetCheckoutURL(ctx context.Context, paymentID, checkoutURL string) error {
	args := m.Called(ctx, paymentID, checkoutURL)
	return args.Error(0)
}
func (m *MockPaymentRepository) MarkPaid(ctx context.Context, txRef, gatewayRef, method string, settledAt time.Time) (*models.Payment, error) {
	args := m.Called(ctx, txRef, gatewayRef, method, settledAt)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) MarkFailed(ctx context.Context, txRef, reason string) (*models.Payment, error) {
	args := m.Called(ctx, txRef, reason)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) MarkCancelled(ctx context.Context, paymentID string) (*models.Payment, error) {
	args := m.Called(ctx, paymentID)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) AppendRefund(ctx context.Context, paymentID string, refund models.Refund) (*models.Payment, error) {
	args := m.Called(ctx, paymentID, refund)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) MarkRefundProcessed(ctx context.Context, refundRef string, processedAt time.Time) (*models.Payment, error) {
	args := m.Called(ctx, refundRef, processedAt)
	payment, _ := args.Get(0).(*models.Payment)
	return payment, args.Error(1)
}
func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	args := m.Called(ctx, paymentID, status)
	return args.Error(0)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) (string, error) {
	args := m.Called(ctx, appointment)
	return args.String(0), args.Error(1)
}
func (m *MockAppointmentRepository) FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) FindOwned(ctx context.Context, appointmentID, ownerField, ownerID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, ownerField, ownerID)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) HasActiveOverlap(ctx context.Context, partyField, partyID string, start, end time.Time, excludeID string) (bool, error) {
	args := m.Called(ctx, partyField, partyID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}
func (m *MockAppointmentRepository) MarkAccepted(ctx context.Context, appointmentID, doctorID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, doctorID)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) MarkCancelled(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, ownerField, ownerID string, record models.CancellationRecord) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, allowed, ownerField, ownerID, record)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) MarkPaymentPending(ctx context.Context, appointmentID, patientID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, patientID)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) MarkConfirmed(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) MarkCompleted(ctx context.Context, appointmentID, doctorID string, status models.AppointmentStatus) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, doctorID, status)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) ReplaceWindow(ctx context.Context, appointmentID, slotID, date string, start, end time.Time) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, slotID, date, start, end)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) AppendReschedule(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, entry models.RescheduleEntry) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, allowed, entry)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) ResolveReschedule(ctx context.Context, appointmentID, requestedBy string, requestedAt time.Time, approve bool, respondedAt time.Time) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, requestedBy, requestedAt, approve, respondedAt)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}
func (m *MockAppointmentRepository) ReinstateCancelled(ctx context.Context, appointmentID string, status models.AppointmentStatus) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, status)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) FindByID(ctx context.Context, patientID string) (*models.Patient, error) {
	args := m.Called(ctx, patientID)
	patient, _ := args.Get(0).(*models.Patient)
	return patient, args.Error(1)
}

type MockGatewayService struct {
	mock.Mock
}

func (m *MockGatewayService) InitializeCharge(ctx context.Context, request *requests.GatewayCharge) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}
func (m *MockGatewayService) Verify(ctx context.Context, txRef string) (*responses.GatewayVerification, error) {
	args := m.Called(ctx, txRef)
	verification, _ := args.Get(0).(*responses.GatewayVerification)
	return verification, args.Error(1)
}
func (m *MockGatewayService) InitiateRefund(ctx context.Context, txRef string, amount float64, reason string, metadata map[string]string) (*responses.GatewayRefund, error) {
	args := m.Called(ctx, txRef, amount, reason, metadata)
	refund, _ := args.Get(0).(*responses.GatewayRefund)
	return refund, args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// passthroughCoordinator runs transactional closures inline; the mocks
// observe the same call sequence a live session would produce.
type passthroughCoordinator struct{}

func (passthroughCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughCoordinator) WithCompensation(ctx context.Context, action func(ctx context.Context) error, compensate func(ctx context.Context) error) error {
	if err := action(ctx); err != nil {
		_ = compensate(ctx)
		return err
	}
	return nil
}

const testWebhookSecret = "whsec_test"

func newTestPaymentUsecase() (*paymentUsecase, *MockPaymentRepository, *MockAppointmentRepository, *MockGatewayService, *MockEventPublisher) {
	paymentRepo := new(MockPaymentRepository)
	appointmentRepo := new(MockAppointmentRepository)
	patientRepo := new(MockPatientRepository)
	gateway := new(MockGatewayService)
	publisher := new(MockEventPublisher)

	uc := &paymentUsecase{
		PaymentRepository:     paymentRepo,
		AppointmentRepository: appointmentRepo,
		PatientRepository:     patientRepo,
		GatewayService:        gateway,
		Coordinator:           passthroughCoordinator{},
		EventPublisher:        publisher,
		InternalConfig: &config.InternalConfig{
			PaymentGateway: config.PaymentGateway{
				WebhookSecret: testWebhookSecret,
			},
		},
		Log: zap.NewNop(),
	}
	return uc, paymentRepo, appointmentRepo, gateway, publisher
}

func signedPayload(t *testing.T, event requests.ChapaWebhookEvent) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload, utils.ComputeWebhookSignature(payload, testWebhookSecret)
}

func paidPayment() *models.Payment {
	settledAt := time.Now().Add(-time.Hour)
	return &models.Payment{
		ID:            primitive.NewObjectID(),
		AppointmentID: primitive.NewObjectID().Hex(),
		PatientID:     "pat-1",
		DoctorID:      "doc-1",
		Amount:        1000,
		Currency:      constvars.CurrencyEthiopianBirr,
		Status:        models.PaymentPaid,
		TxRef:         "cl-tx-1",
		SettledAt:     &settledAt,
	}
}

func TestHandleWebhook_RejectsBadSignatureBeforeAnySideEffect(t *testing.T) {
	uc, paymentRepo, appointmentRepo, _, _ := newTestPaymentUsecase()

	payload, _ := signedPayload(t, requests.ChapaWebhookEvent{
		Event: constvars.ChapaEventChargeSuccess,
		TxRef: "cl-tx-1",
	})

	_, err := uc.HandleWebhook(context.Background(), payload, "forged-signature")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 401, customErr.StatusCode)

	paymentRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	appointmentRepo.AssertNotCalled(t, "MarkConfirmed", mock.Anything, mock.Anything)
}

func TestHandleWebhook_ChargeSuccessSettlesAndConfirms(t *testing.T) {
	uc, paymentRepo, appointmentRepo, _, publisher := newTestPaymentUsecase()

	payment := paidPayment()
	payload, signature := signedPayload(t, requests.ChapaWebhookEvent{
		Event:     constvars.ChapaEventChargeSuccess,
		TxRef:     payment.TxRef,
		Reference: "chapa-ref-1",
		Status:    constvars.ChapaStatusSuccess,
	})

	paymentRepo.On("MarkPaid", mock.Anything, payment.TxRef, "chapa-ref-1", mock.Anything, mock.Anything).Return(payment, nil)
	appointmentRepo.On("MarkConfirmed", mock.Anything, payment.AppointmentID).Return(&models.Appointment{
		ID:     primitive.NewObjectID(),
		Status: models.AppointmentConfirmed,
	}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	response, err := uc.HandleWebhook(context.Background(), payload, signature)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), response.Status)

	paymentRepo.AssertExpectations(t)
	appointmentRepo.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	uc, paymentRepo, appointmentRepo, _, _ := newTestPaymentUsecase()

	payment := paidPayment()
	payload, signature := signedPayload(t, requests.ChapaWebhookEvent{
		Event:     constvars.ChapaEventChargeSuccess,
		TxRef:     payment.TxRef,
		Reference: "chapa-ref-1",
		Status:    constvars.ChapaStatusSuccess,
	})

	// Second delivery: the conditional settle misses and the stored row
	// is returned unchanged. The confirm is retried anyway in case the
	// first delivery never got that far; its conditional filter misses
	// here because the appointment is already confirmed.
	paymentRepo.On("MarkPaid", mock.Anything, payment.TxRef, "chapa-ref-1", mock.Anything, mock.Anything).Return(nil, nil)
	paymentRepo.On("FindByTxRef", mock.Anything, payment.TxRef).Return(payment, nil)
	appointmentRepo.On("MarkConfirmed", mock.Anything, payment.AppointmentID).Return(nil, nil)

	response, err := uc.HandleWebhook(context.Background(), payload, signature)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), response.Status)

	appointmentRepo.AssertNumberOfCalls(t, "MarkConfirmed", 1)
}

func TestHandleWebhook_ConfirmFailureAbortsSettlement(t *testing.T) {
	uc, paymentRepo, appointmentRepo, _, publisher := newTestPaymentUsecase()

	payment := paidPayment()
	payload, signature := signedPayload(t, requests.ChapaWebhookEvent{
		Event:     constvars.ChapaEventChargeSuccess,
		TxRef:     payment.TxRef,
		Reference: "chapa-ref-1",
		Status:    constvars.ChapaStatusSuccess,
	})

	paymentRepo.On("MarkPaid", mock.Anything, payment.TxRef, "chapa-ref-1", mock.Anything, mock.Anything).Return(payment, nil)
	appointmentRepo.On("MarkConfirmed", mock.Anything, payment.AppointmentID).
		Return(nil, exceptions.ErrMongoDBUpdateDocument(assert.AnError))

	// The settle transaction aborts as a whole; the gateway keeps the
	// delivery pending and retries later.
	_, err := uc.HandleWebhook(context.Background(), payload, signature)
	require.Error(t, err)

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestQueueCancellationRefund_UnsettledPaymentIsCancelledWithoutRefund(t *testing.T) {
	uc, paymentRepo, _, gateway, _ := newTestPaymentUsecase()

	payment := paidPayment()
	payment.Status = models.PaymentPending
	appointment := &models.Appointment{
		ID:    primitive.NewObjectID(),
		Start: time.Now().Add(48 * time.Hour),
		Fee:   1000,
	}

	paymentRepo.On("FindByAppointmentID", mock.Anything, appointment.ID.Hex()).Return(payment, nil)
	paymentRepo.On("MarkCancelled", mock.Anything, payment.ID.Hex()).Return(payment, nil)

	amount, err := uc.QueueCancellationRefund(context.Background(), appointment, constvars.RolePatient, "changed my mind")
	require.NoError(t, err)
	assert.Zero(t, amount)

	gateway.AssertNotCalled(t, "InitiateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQueueCancellationRefund_LateCancellationRefundsNothing(t *testing.T) {
	uc, paymentRepo, _, gateway, _ := newTestPaymentUsecase()

	payment := paidPayment()
	appointment := &models.Appointment{
		ID:    primitive.NewObjectID(),
		Start: time.Now().Add(2 * time.Hour),
		Fee:   1000,
	}

	paymentRepo.On("FindByAppointmentID", mock.Anything, appointment.ID.Hex()).Return(payment, nil)

	amount, err := uc.QueueCancellationRefund(context.Background(), appointment, constvars.RolePatient, "late cancel")
	require.NoError(t, err)
	assert.Zero(t, amount)

	gateway.AssertNotCalled(t, "InitiateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertNotCalled(t, "AppendRefund", mock.Anything, mock.Anything, mock.Anything)
}

func TestQueueCancellationRefund_PendingRefundBlocksASecondOne(t *testing.T) {
	uc, paymentRepo, _, gateway, _ := newTestPaymentUsecase()

	payment := paidPayment()
	payment.Status = models.PaymentRefundInitiated
	payment.Refunds = []models.Refund{{
		ID:     "ref-1",
		Amount: 500,
		Status: models.RefundPending,
	}}
	appointment := &models.Appointment{
		ID:    primitive.NewObjectID(),
		Start: time.Now().Add(48 * time.Hour),
		Fee:   1000,
	}

	paymentRepo.On("FindByAppointmentID", mock.Anything, appointment.ID.Hex()).Return(payment, nil)

	_, err := uc.QueueCancellationRefund(context.Background(), appointment, constvars.RolePatient, "again")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 400, customErr.StatusCode)

	gateway.AssertNotCalled(t, "InitiateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQueueCancellationRefund_CapBlocksOverRefund(t *testing.T) {
	uc, paymentRepo, _, gateway, _ := newTestPaymentUsecase()

	payment := paidPayment()
	payment.Status = models.PaymentPartiallyRefunded
	processedAt := time.Now().Add(-time.Hour)
	payment.Refunds = []models.Refund{{
		ID:          "ref-1",
		Amount:      800,
		Status:      models.RefundProcessed,
		ProcessedAt: &processedAt,
	}}
	appointment := &models.Appointment{
		ID:    primitive.NewObjectID(),
		Start: time.Now().Add(48 * time.Hour),
		Fee:   1000,
	}

	paymentRepo.On("FindByAppointmentID", mock.Anything, appointment.ID.Hex()).Return(payment, nil)

	// A full-tier refund of 1000 on top of 800 already returned would
	// exceed the original amount.
	_, err := uc.QueueCancellationRefund(context.Background(), appointment, constvars.RolePatient, "cap check")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 400, customErr.StatusCode)

	gateway.AssertNotCalled(t, "InitiateRefund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertNotCalled(t, "AppendRefund", mock.Anything, mock.Anything, mock.Anything)
}

func TestQueueCancellationRefund_DoctorCancelQueuesFullRefund(t *testing.T) {
	uc, paymentRepo, _, gateway, publisher := newTestPaymentUsecase()

	payment := paidPayment()
	appointment := &models.Appointment{
		ID:    primitive.NewObjectID(),
		Start: time.Now().Add(time.Hour),
		Fee:   1000,
	}

	paymentRepo.On("FindByAppointmentID", mock.Anything, appointment.ID.Hex()).Return(payment, nil)
	gateway.On("InitiateRefund", mock.Anything, payment.TxRef, float64(1000), "emergency", mock.Anything).
		Return(&responses.GatewayRefund{Status: constvars.ChapaStatusSuccess, RefundRef: "chapa-refund-1"}, nil)
	paymentRepo.On("AppendRefund", mock.Anything, payment.ID.Hex(), mock.MatchedBy(func(refund models.Refund) bool {
		return refund.Amount == 1000 && refund.Status == models.RefundPending && refund.RefundRef == "chapa-refund-1"
	})).Return(payment, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	amount, err := uc.QueueCancellationRefund(context.Background(), appointment, constvars.RoleDoctor, "emergency")
	require.NoError(t, err)
	assert.Equal(t, float64(1000), amount)

	gateway.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

func TestHandleWebhook_RefundProcessedSettlesRefundState(t *testing.T) {
	uc, paymentRepo, _, _, publisher := newTestPaymentUsecase()

	payment := paidPayment()
	processedAt := time.Now()
	payment.Status = models.PaymentRefundInitiated
	payment.Refunds = []models.Refund{{
		ID:          "ref-1",
		Amount:      1000,
		Status:      models.RefundProcessed,
		RefundRef:   "chapa-refund-1",
		ProcessedAt: &processedAt,
	}}

	payload, signature := signedPayload(t, requests.ChapaWebhookEvent{
		Event:     constvars.ChapaEventRefundComplete,
		TxRef:     payment.TxRef,
		RefundRef: "chapa-refund-1",
		Status:    constvars.ChapaStatusSuccess,
	})

	paymentRepo.On("MarkRefundProcessed", mock.Anything, "chapa-refund-1", mock.Anything).Return(payment, nil)
	paymentRepo.On("UpdateStatus", mock.Anything, payment.ID.Hex(), models.PaymentRefunded).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	response, err := uc.HandleWebhook(context.Background(), payload, signature)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentRefunded), response.Status)

	paymentRepo.AssertExpectations(t)
}
