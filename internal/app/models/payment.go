package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentCancelled         PaymentStatus = "cancelled"
	PaymentRefundInitiated   PaymentStatus = "refund_initiated"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// Refund is a discrete, amount-bounded reversal attempt against a paid
// payment. The sum of non-failed refund amounts never exceeds the
// original payment amount.
type Refund struct {
	ID          string       `bson:"id" json:"id"`
	Amount      float64      `bson:"amount" json:"amount"`
	Reason      string       `bson:"reason" json:"reason"`
	Status      RefundStatus `bson:"status" json:"status"`
	RefundRef   string       `bson:"refundRef,omitempty" json:"refund_ref,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"created_at"`
	ProcessedAt *time.Time   `bson:"processedAt,omitempty" json:"processed_at,omitempty"`
}

type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AppointmentID string             `bson:"appointmentId" json:"appointment_id"`
	PatientID     string             `bson:"patientId" json:"patient_id"`
	DoctorID      string             `bson:"doctorId" json:"doctor_id"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	Status        PaymentStatus      `bson:"status" json:"status"`
	TxRef         string             `bson:"txRef" json:"tx_ref"`
	GatewayRef    string             `bson:"gatewayRef,omitempty" json:"gateway_ref,omitempty"`
	Method        string             `bson:"method,omitempty" json:"method,omitempty"`
	CheckoutURL   string             `bson:"checkoutUrl,omitempty" json:"checkout_url,omitempty"`
	SettledAt     *time.Time         `bson:"settledAt,omitempty" json:"settled_at,omitempty"`
	FailureReason string             `bson:"failureReason,omitempty" json:"failure_reason,omitempty"`
	Refunds       []Refund           `bson:"refunds,omitempty" json:"refunds,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// PendingRefund returns the outstanding refund attempt, if any. At most
// one refund may be pending at a time.
func (p *Payment) PendingRefund() *Refund {
	for i := range p.Refunds {
		if p.Refunds[i].Status == RefundPending {
			return &p.Refunds[i]
		}
	}
	return nil
}

// RefundedTotal sums processed refund amounts.
func (p *Payment) RefundedTotal() float64 {
	var total float64
	for _, r := range p.Refunds {
		if r.Status == RefundProcessed {
			total += r.Amount
		}
	}
	return total
}

// CommittedRefundTotal sums processed and pending refund amounts, the
// figure the refund cap is enforced against.
func (p *Payment) CommittedRefundTotal() float64 {
	var total float64
	for _, r := range p.Refunds {
		if r.Status == RefundProcessed || r.Status == RefundPending {
			total += r.Amount
		}
	}
	return total
}
