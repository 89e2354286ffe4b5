package constvars

const (
	ChapaInitializePath = "/v1/transaction/initialize"
	ChapaVerifyPath     = "/v1/transaction/verify/"
	ChapaRefundPath     = "/v1/refund/"

	ChapaStatusSuccess = "success"
	ChapaStatusFailed  = "failed"
	ChapaStatusPending = "pending"

	ChapaEventChargeSuccess  = "charge.success"
	ChapaEventChargeFailed   = "charge.failed"
	ChapaEventRefundComplete = "refund.processed"

	CurrencyEthiopianBirr = "ETB"

	TxRefPrefix = "cl-tx"
)
