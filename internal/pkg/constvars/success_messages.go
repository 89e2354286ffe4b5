package constvars

const (
	ResponseUnknown = "unknown"

	AppointmentCreatedSuccess     = "appointment requested successfully"
	AppointmentAcceptedSuccess    = "appointment accepted successfully"
	AppointmentRejectedSuccess    = "appointment rejected successfully"
	AppointmentCancelledSuccess   = "appointment cancelled successfully"
	AppointmentCompletedSuccess   = "appointment completed successfully"
	RescheduleRequestedSuccess    = "reschedule requested successfully"
	RescheduleRespondedSuccess    = "reschedule response recorded successfully"
	SlotsCreatedSuccess           = "slots created successfully"
	SlotsFetchedSuccess           = "slots fetched successfully"
	PaymentCreatedSuccess         = "payment created successfully"
	PaymentInitializedSuccess     = "payment initialized successfully"
	PaymentCallbackAckMessage     = "callback processed"
	PaymentWebhookAckMessage      = "webhook processed"
)
