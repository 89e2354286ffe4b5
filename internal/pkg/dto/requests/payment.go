package requests

// GatewayCharge carries the payer details the gateway needs to start a
// hosted checkout.
type GatewayCharge struct {
	Amount    float64
	Currency  string
	Email     string
	FirstName string
	LastName  string
	TxRef     string
	CallbackURL string
	ReturnURL   string
}

// ChapaWebhookEvent is the payload the gateway posts to the webhook
// endpoint. The same event may be delivered more than once.
type ChapaWebhookEvent struct {
	Event         string  `json:"event"`
	TxRef         string  `json:"tx_ref"`
	Reference     string  `json:"reference"`
	RefundRef     string  `json:"refund_reference,omitempty"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount,string"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}
