package constvars

// Client-facing messages. Kept generic where leaking detail would reveal
// existence of resources to non-owners.
const (
	ErrClientSomethingWrongWithApplication = "something went wrong with the application, please try again later"
	ErrClientCannotProcessRequest          = "cannot process your request, please check your input"
	ErrClientNotAuthorized                 = "you are not authorized to perform this action"
	ErrClientNotLoggedIn                   = "you are not logged in, please login first"
	ErrClientServerLongRespond             = "server took too long to respond, please try again later"

	ErrClientDoctorNotFound            = "the requested doctor does not exist"
	ErrClientSlotNotFound              = "the requested slot does not exist"
	ErrClientSlotAlreadyBooked         = "the requested slot has just been taken, please pick another"
	ErrClientBookingOverlap            = "an overlapping appointment already exists for this time window"
	ErrClientAppointmentNotActionable  = "appointment not found or not in a state that allows this action"
	ErrClientReschedulePendingExists   = "a reschedule request is already awaiting a response"
	ErrClientRescheduleHistoryFull     = "this appointment has reached its reschedule limit"
	ErrClientRescheduleSelfResponse    = "the requester of a reschedule cannot respond to it"
	ErrClientAppointmentNotEnded       = "appointment cannot be completed before its end time"
	ErrClientPaymentNotActionable      = "payment not found or not in a state that allows this action"
	ErrClientRefundAlreadyPending      = "a refund is already being processed for this payment"
	ErrClientRefundExceedsPayment      = "refund amount would exceed the original payment"
	ErrClientPaymentGatewayUnavailable = "payment provider is unavailable, please try again later"
	ErrClientWebhookSignatureInvalid   = "webhook signature verification failed"
)

// Developer-facing messages, logged but never returned in production.
const (
	ErrDevValidationFailed          = "request validation failed"
	ErrDevInvalidInput              = "invalid input"
	ErrDevCannotParseJSON           = "cannot parse JSON payload"
	ErrDevCannotMarshalJSON         = "cannot marshal value to JSON"
	ErrDevCannotReadRequestBody     = "cannot read request body"
	ErrDevServerDeadlineExceeded    = "server deadline exceeded"
	ErrDevURLParamMissing           = "required URL parameter %s is missing"
	ErrDevCannotParseTime           = "cannot parse time value"
	ErrDevAuthTokenMissing          = "authorization token is missing"
	ErrDevAuthTokenInvalid          = "authorization token is invalid"
	ErrDevAuthSigningMethod         = "unexpected JWT signing method"
	ErrDevAuthGenerateToken         = "failed to generate JWT"
	ErrDevAuthInvalidSession        = "session not found or expired"
	ErrDevRoleTypeDoesntMatch       = "caller role does not match the required role"
	ErrDevNotResourceOwner          = "caller does not own the resource"
	ErrDevDBFailedToFindDocument    = "database failed to find document"
	ErrDevDBFailedToInsertDocument  = "database failed to insert document"
	ErrDevDBFailedToUpdateDocument  = "database failed to update document"
	ErrDevDBFailedToIterateCursor   = "database failed to iterate cursor"
	ErrDevDBStringNotObjectID       = "identifier is not a valid object id"
	ErrDevDBTransactionFailed       = "database transaction failed"
	ErrDevRedisGetData              = "failed to get data from redis"
	ErrDevRedisSetData              = "failed to set data in redis"
	ErrDevRedisDeleteData           = "failed to delete data from redis"
	ErrDevDoctorNotFound            = "doctor document does not exist"
	ErrDevSlotNotFound              = "slot does not exist under the doctor schedule"
	ErrDevSlotReservationLost       = "conditional slot flip modified no document"
	ErrDevSlotOverlapDetected       = "overlapping active appointment detected after slot flip"
	ErrDevAppointmentTransitionMiss = "appointment transition filter matched no document"
	ErrDevPaymentTransitionMiss     = "payment transition filter matched no document"
	ErrDevRefundPendingExists       = "payment already has a pending refund attempt"
	ErrDevRefundCapExceeded         = "refund total would exceed payment amount"
	ErrDevGatewayRequestFailed      = "payment gateway request failed"
	ErrDevGatewayBadStatus          = "payment gateway returned non-success status: %s"
	ErrDevWebhookSignatureMismatch  = "webhook signature mismatch"
	ErrDevRabbitMQPublishFailed     = "failed to publish message to rabbitmq"
)
