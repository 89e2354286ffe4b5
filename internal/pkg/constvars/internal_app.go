package constvars

type ContextKey string

const (
	CONTEXT_REQUEST_ID_KEY           ContextKey = "requestID"
	CONTEXT_IS_CLIENT_REQUEST_ID_KEY ContextKey = "isClientRequestID"
	CONTEXT_SESSION_DATA_KEY         ContextKey = "sessionData"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

const (
	AppointmentTypeInPerson = "in_person"
	AppointmentTypeVirtual  = "virtual"
)

const (
	// RescheduleHistoryCapacity caps the append-only reschedule history per appointment.
	RescheduleHistoryCapacity = 5

	// Refund tier boundaries, hours before the appointment start.
	RefundFullTierHours = 24
	RefundHalfTierHours = 6
)

const (
	DateOnlyLayout  = "2006-01-02"
	TimeOfDayLayout = "15:04"
)
