package appointments

import (
	"context"
	"testing"
	"time"

	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
	"carelink-service/internal/pkg/exceptions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

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

type MockSlotReserver struct {
	mock.Mock
}

func (m *MockSlotReserver) Reserve(ctx context.Context, doctorID, slotID, patientID, excludeAppointmentID string) (*models.ReservedWindow, error) {
	args := m.Called(ctx, doctorID, slotID, patientID, excludeAppointmentID)
	window, _ := args.Get(0).(*models.ReservedWindow)
	return window, args.Error(1)
}
func (m *MockSlotReserver) Release(ctx context.Context, doctorID, slotID string) error {
	args := m.Called(ctx, doctorID, slotID)
	return args.Error(0)
}
func (m *MockSlotReserver) Reblock(ctx context.Context, doctorID, slotID, patientID string) error {
	args := m.Called(ctx, doctorID, slotID, patientID)
	return args.Error(0)
}

type MockPaymentUsecase struct {
	mock.Mock
}

func (m *MockPaymentUsecase) InitiatePayment(ctx context.Context, session *models.Session, appointmentID string) (*responses.CreatePayment, error) {
	args := m.Called(ctx, session, appointmentID)
	response, _ := args.Get(0).(*responses.CreatePayment)
	return response, args.Error(1)
}
func (m *MockPaymentUsecase) InitializeCheckout(ctx context.Context, session *models.Session, paymentID string) (*responses.InitializePayment, error) {
	args := m.Called(ctx, session, paymentID)
	response, _ := args.Get(0).(*responses.InitializePayment)
	return response, args.Error(1)
}
func (m *MockPaymentUsecase) HandleCallback(ctx context.Context, txRef string) error {
	args := m.Called(ctx, txRef)
	return args.Error(0)
}
func (m *MockPaymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) (*responses.Payment, error) {
	args := m.Called(ctx, payload, signature)
	response, _ := args.Get(0).(*responses.Payment)
	return response, args.Error(1)
}
func (m *MockPaymentUsecase) QueueCancellationRefund(ctx context.Context, appointment *models.Appointment, cancellerRole, reason string) (float64, error) {
	args := m.Called(ctx, appointment, cancellerRole, reason)
	return args.Get(0).(float64), args.Error(1)
}

// passthroughCoordinator runs the coordinator contract inline without a
// session, so compensation behaviour is observable through the mocks.
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

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestAppointmentUsecase() (*appointmentUsecase, *MockAppointmentRepository, *MockSlotReserver, *MockPaymentUsecase, *MockEventPublisher) {
	appointmentRepo := new(MockAppointmentRepository)
	slotReserver := new(MockSlotReserver)
	paymentUsecase := new(MockPaymentUsecase)
	publisher := new(MockEventPublisher)

	uc := &appointmentUsecase{
		AppointmentRepository: appointmentRepo,
		SlotReserver:          slotReserver,
		PaymentUsecase:        paymentUsecase,
		Coordinator:           passthroughCoordinator{},
		EventPublisher:        publisher,
		Log:                   zap.NewNop(),
	}
	return uc, appointmentRepo, slotReserver, paymentUsecase, publisher
}

func doctorSession() *models.Session {
	return &models.Session{
		SessionID: "sess-doc",
		UserID:    "user-doc",
		Role:      constvars.RoleDoctor,
		DoctorID:  "doc-1",
	}
}

func patientSession() *models.Session {
	return &models.Session{
		SessionID: "sess-pat",
		UserID:    "user-pat",
		Role:      constvars.RolePatient,
		PatientID: "pat-1",
	}
}

func confirmedAppointment() *models.Appointment {
	return &models.Appointment{
		ID:        primitive.NewObjectID(),
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Fee:       1000,
		Currency:  constvars.CurrencyEthiopianBirr,
		SlotID:    "slot-1",
		Date:      "2026-04-01",
		Start:     time.Now().Add(48 * time.Hour),
		End:       time.Now().Add(48*time.Hour + 30*time.Minute),
		Status:    models.AppointmentConfirmed,
	}
}

func TestAccept_TransitionMissIsNotActionable(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	appointmentRepo.On("MarkAccepted", mock.Anything, "apt-1", "doc-1").Return(nil, nil)

	_, err := uc.Accept(context.Background(), doctorSession(), "apt-1")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 404, customErr.StatusCode)
}

func TestAccept_PatientRoleIsRejected(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	_, err := uc.Accept(context.Background(), patientSession(), "apt-1")
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 403, customErr.StatusCode)

	appointmentRepo.AssertNotCalled(t, "MarkAccepted", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_ReturnsRefundAmountAndFreesSlot(t *testing.T) {
	uc, appointmentRepo, slotReserver, paymentUsecase, publisher := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointmentID := appointment.ID.Hex()
	cancelled := *appointment
	cancelled.Status = models.AppointmentCancelled

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "patientId", "pat-1").Return(appointment, nil)
	appointmentRepo.On("MarkCancelled", mock.Anything, appointmentID, cancellableStatuses, "patientId", "pat-1", mock.Anything).
		Return(&cancelled, nil)
	paymentUsecase.On("QueueCancellationRefund", mock.Anything, &cancelled, constvars.RolePatient, "travel plans changed").
		Return(float64(500), nil)
	slotReserver.On("Release", mock.Anything, "doc-1", "slot-1").Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	response, err := uc.Cancel(context.Background(), patientSession(), appointmentID,
		&requests.CancelAppointment{CancellationReason: "travel plans changed"})
	require.NoError(t, err)
	assert.Equal(t, float64(500), response.RefundAmount)

	slotReserver.AssertExpectations(t)
	paymentUsecase.AssertExpectations(t)
}

func TestCancel_RefundFailureReinstatesAppointment(t *testing.T) {
	uc, appointmentRepo, slotReserver, paymentUsecase, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointmentID := appointment.ID.Hex()
	cancelled := *appointment
	cancelled.Status = models.AppointmentCancelled

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "patientId", "pat-1").Return(appointment, nil)
	appointmentRepo.On("MarkCancelled", mock.Anything, appointmentID, cancellableStatuses, "patientId", "pat-1", mock.Anything).
		Return(&cancelled, nil)
	paymentUsecase.On("QueueCancellationRefund", mock.Anything, &cancelled, constvars.RolePatient, "again").
		Return(float64(0), exceptions.ErrGatewayRequest(nil))
	appointmentRepo.On("ReinstateCancelled", mock.Anything, appointmentID, models.AppointmentConfirmed).
		Return(appointment, nil)

	_, err := uc.Cancel(context.Background(), patientSession(), appointmentID,
		&requests.CancelAppointment{CancellationReason: "again"})
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 502, customErr.StatusCode)

	// The appointment goes back to its pre-cancel status and keeps its
	// slot, so the patient can cancel again once the gateway recovers.
	appointmentRepo.AssertCalled(t, "ReinstateCancelled", mock.Anything, appointmentID, models.AppointmentConfirmed)
	slotReserver.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_TransitionMissLeavesConcurrentWriterAlone(t *testing.T) {
	uc, appointmentRepo, slotReserver, _, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointmentID := appointment.ID.Hex()

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "patientId", "pat-1").Return(appointment, nil)
	appointmentRepo.On("MarkCancelled", mock.Anything, appointmentID, cancellableStatuses, "patientId", "pat-1", mock.Anything).
		Return(nil, nil)

	_, err := uc.Cancel(context.Background(), patientSession(), appointmentID,
		&requests.CancelAppointment{CancellationReason: "raced"})
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 404, customErr.StatusCode)

	appointmentRepo.AssertNotCalled(t, "ReinstateCancelled", mock.Anything, mock.Anything, mock.Anything)
	slotReserver.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestRespondReschedule_RequesterCannotApproveOwnRequest(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointment.Reschedules = []models.RescheduleEntry{{
		PreviousSlotID: "slot-1",
		NewSlotID:      "slot-2",
		RequestedBy:    "doc-1",
		RequesterRole:  constvars.RoleDoctor,
		Status:         models.ReschedulePending,
		RequestedAt:    time.Now(),
	}}

	appointmentRepo.On("FindByID", mock.Anything, appointment.ID.Hex()).Return(appointment, nil)

	_, err := uc.RespondReschedule(context.Background(), doctorSession(), appointment.ID.Hex(), true)
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 403, customErr.StatusCode)

	appointmentRepo.AssertNotCalled(t, "ResolveReschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRespondReschedule_StrangerSeesNotFound(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointment.DoctorID = "doc-other"
	appointment.Reschedules = []models.RescheduleEntry{{
		NewSlotID:   "slot-2",
		RequestedBy: "pat-1",
		Status:      models.ReschedulePending,
	}}

	appointmentRepo.On("FindByID", mock.Anything, appointment.ID.Hex()).Return(appointment, nil)

	// A non-participant gets the same answer as a missing appointment.
	_, err := uc.RespondReschedule(context.Background(), doctorSession(), appointment.ID.Hex(), true)
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 404, customErr.StatusCode)
}

func TestRespondReschedule_ResolveTargetsValidatedEntry(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	requestedAt := time.Now().Add(-time.Hour)
	appointment := confirmedAppointment()
	appointment.Reschedules = []models.RescheduleEntry{{
		PreviousSlotID: "slot-1",
		NewSlotID:      "slot-2",
		RequestedBy:    "pat-1",
		RequesterRole:  constvars.RolePatient,
		Status:         models.ReschedulePending,
		RequestedAt:    requestedAt,
	}}
	resolved := *appointment
	resolved.Reschedules = append([]models.RescheduleEntry(nil), appointment.Reschedules...)
	resolved.Reschedules[0].Status = models.RescheduleRejected

	appointmentRepo.On("FindByID", mock.Anything, appointment.ID.Hex()).Return(appointment, nil)
	// The settle write must carry the identity of the entry that was
	// just validated, not merely "whatever entry is pending".
	appointmentRepo.On("ResolveReschedule", mock.Anything, appointment.ID.Hex(), "pat-1", requestedAt, false, mock.Anything).
		Return(&resolved, nil)

	_, err := uc.RespondReschedule(context.Background(), doctorSession(), appointment.ID.Hex(), false)
	require.NoError(t, err)

	appointmentRepo.AssertExpectations(t)
}

func TestRespondReschedule_SwappedEntryMissesAndIsNotActionable(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	requestedAt := time.Now().Add(-time.Hour)
	appointment := confirmedAppointment()
	appointment.Reschedules = []models.RescheduleEntry{{
		PreviousSlotID: "slot-1",
		NewSlotID:      "slot-2",
		RequestedBy:    "pat-1",
		RequesterRole:  constvars.RolePatient,
		Status:         models.ReschedulePending,
		RequestedAt:    requestedAt,
	}}

	appointmentRepo.On("FindByID", mock.Anything, appointment.ID.Hex()).Return(appointment, nil)
	// The validated entry was settled and replaced between the read and
	// the write, so the identity-pinned update matches nothing.
	appointmentRepo.On("ResolveReschedule", mock.Anything, appointment.ID.Hex(), "pat-1", requestedAt, false, mock.Anything).
		Return(nil, nil)

	_, err := uc.RespondReschedule(context.Background(), doctorSession(), appointment.ID.Hex(), false)
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 404, customErr.StatusCode)
}

func TestRequestReschedule_PendingSwapReblocksOriginalSlotOnFailure(t *testing.T) {
	uc, appointmentRepo, slotReserver, _, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointment.Status = models.AppointmentPending
	appointmentID := appointment.ID.Hex()

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "patientId", "pat-1").Return(appointment, nil)
	slotReserver.On("Release", mock.Anything, "doc-1", "slot-1").Return(nil)
	slotReserver.On("Reserve", mock.Anything, "doc-1", "slot-2", "pat-1", appointmentID).
		Return(nil, exceptions.ErrSlotAlreadyBooked(nil))
	slotReserver.On("Reblock", mock.Anything, "doc-1", "slot-1", "pat-1").Return(nil)

	_, err := uc.RequestReschedule(context.Background(), patientSession(), appointmentID,
		&requests.RescheduleAppointment{SlotID: "slot-2", Reason: "earlier works better"})
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 409, customErr.StatusCode)

	// The original window is re-blocked so the pending appointment never
	// dangles without a slot.
	slotReserver.AssertCalled(t, "Reblock", mock.Anything, "doc-1", "slot-1", "pat-1")
}

func TestComplete_BeforeWindowEndIsRejected(t *testing.T) {
	uc, appointmentRepo, _, _, _ := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointmentID := appointment.ID.Hex()

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "doctorId", "doc-1").Return(appointment, nil)

	_, err := uc.Complete(context.Background(), doctorSession(), appointmentID, &requests.CompleteAppointment{})
	require.Error(t, err)

	var customErr *exceptions.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, 400, customErr.StatusCode)

	appointmentRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComplete_NoShowOutcomeIsRecorded(t *testing.T) {
	uc, appointmentRepo, _, _, publisher := newTestAppointmentUsecase()

	appointment := confirmedAppointment()
	appointment.Start = time.Now().Add(-2 * time.Hour)
	appointment.End = time.Now().Add(-90 * time.Minute)
	appointmentID := appointment.ID.Hex()

	completed := *appointment
	completed.Status = models.AppointmentNoShow

	appointmentRepo.On("FindOwned", mock.Anything, appointmentID, "doctorId", "doc-1").Return(appointment, nil)
	appointmentRepo.On("MarkCompleted", mock.Anything, appointmentID, "doc-1", models.AppointmentNoShow).Return(&completed, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	response, err := uc.Complete(context.Background(), doctorSession(), appointmentID, &requests.CompleteAppointment{NoShow: true})
	require.NoError(t, err)
	assert.Equal(t, string(models.AppointmentNoShow), response.Status)

	appointmentRepo.AssertExpectations(t)
}
