package responses

import (
	"time"

	"carelink-service/internal/app/models"
)

type Payment struct {
	ID            string          `json:"id"`
	AppointmentID string          `json:"appointment_id"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	TxRef         string          `json:"tx_ref"`
	Method        string          `json:"method,omitempty"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
	Refunds       []models.Refund `json:"refunds,omitempty"`
}

type CreatePayment struct {
	Payment              Payment `json:"payment"`
	PaymentInitiationURL string  `json:"payment_initiation_url"`
}

type InitializePayment struct {
	PaymentURL string `json:"payment_url"`
}

// GatewayVerification is the provider's answer to a verify call.
type GatewayVerification struct {
	Status    string
	Reference string
	Method    string
	Currency  string
	Amount    float64
	SettledAt time.Time
}

// GatewayRefund is the provider's acknowledgment of a refund request.
type GatewayRefund struct {
	Status    string
	RefundRef string
}

func NewPayment(payment *models.Payment) Payment {
	return Payment{
		ID:            payment.ID.Hex(),
		AppointmentID: payment.AppointmentID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Status:        string(payment.Status),
		TxRef:         payment.TxRef,
		Method:        payment.Method,
		SettledAt:     payment.SettledAt,
		Refunds:       payment.Refunds,
	}
}
