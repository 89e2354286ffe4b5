package constvars

const (
	LoggingRequestIDKey     = "request_id"
	LoggingSessionDataKey   = "session_data"
	LoggingRequestKey       = "request"
	LoggingResponseKey      = "response"
	LoggingMethodKey        = "method"
	LoggingEndpointKey      = "endpoint"
	LoggingRemoteAddrKey    = "remote_addr"
	LoggingUserAgentKey     = "user_agent"
	LoggingQueryKey         = "query"
	LoggingStatusCodeKey    = "status_code"
	LoggingDurationKey      = "duration"
	LoggingSuccessKey       = "success"
	LoggingDoctorIDKey      = "doctor_id"
	LoggingPatientIDKey     = "patient_id"
	LoggingSlotIDKey        = "slot_id"
	LoggingAppointmentIDKey = "appointment_id"
	LoggingPaymentIDKey     = "payment_id"
	LoggingTxRefKey         = "tx_ref"
	LoggingRefundIDKey      = "refund_id"
	LoggingRefundAmountKey  = "refund_amount"
	LoggingEventTypeKey     = "event_type"
	LoggingGatewayStatusKey = "gateway_status"
)
