package contracts

import (
	"context"
	"time"

	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/dto/requests"
	"carelink-service/internal/pkg/dto/responses"
)

// PaymentRepository persists payment documents, one per appointment.
// Transition methods follow the same conditional-update discipline as
// the appointment repository; nil result with nil error means the
// filter matched nothing.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) (string, error)
	FindByID(ctx context.Context, paymentID string) (*models.Payment, error)
	FindByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error)
	FindByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	FindByRefundRef(ctx context.Context, refundRef string) (*models.Payment, error)

	SetCheckoutURL(ctx context.Context, paymentID, checkoutURL string) error
	// MarkPaid settles the payment conditioned on it still being
	// pending; a miss on an already-paid payment is the idempotent
	// redelivery case, not an error.
	MarkPaid(ctx context.Context, txRef, gatewayRef, method string, settledAt time.Time) (*models.Payment, error)
	MarkFailed(ctx context.Context, txRef, reason string) (*models.Payment, error)
	MarkCancelled(ctx context.Context, paymentID string) (*models.Payment, error)

	// AppendRefund queues a refund attempt conditioned on no other
	// pending refund existing on the payment.
	AppendRefund(ctx context.Context, paymentID string, refund models.Refund) (*models.Payment, error)
	MarkRefundProcessed(ctx context.Context, refundRef string, processedAt time.Time) (*models.Payment, error)
	UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error
}

type PaymentUsecase interface {
	InitiatePayment(ctx context.Context, session *models.Session, appointmentID string) (*responses.CreatePayment, error)
	InitializeCheckout(ctx context.Context, session *models.Session, paymentID string) (*responses.InitializePayment, error)
	HandleCallback(ctx context.Context, txRef string) error
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*responses.Payment, error)
	// QueueCancellationRefund computes the tiered refund for a paid
	// payment being cancelled and queues the attempt. Returns the
	// refund amount, possibly zero.
	QueueCancellationRefund(ctx context.Context, appointment *models.Appointment, cancellerRole, reason string) (float64, error)
}

// PaymentGatewayService is the boundary to the external payment
// provider. Calls are fallible network I/O bounded by a timeout; local
// state is never mutated without the corresponding external
// confirmation.
type PaymentGatewayService interface {
	InitializeCharge(ctx context.Context, request *requests.GatewayCharge) (string, error)
	Verify(ctx context.Context, txRef string) (*responses.GatewayVerification, error)
	InitiateRefund(ctx context.Context, txRef string, amount float64, reason string, metadata map[string]string) (*responses.GatewayRefund, error)
}
