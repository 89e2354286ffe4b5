package constvars

const (
	MIMEApplicationJSON = "application/json"

	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderXRequestID     = "X-Request-ID"
	HeaderChapaSignature  = "Chapa-Signature"
	HeaderXChapaSignature = "x-chapa-signature"
)

const (
	URLParamDoctorID      = "doctorId"
	URLParamAppointmentID = "appointmentId"
	URLParamPaymentID     = "paymentId"
	URLParamTxRef         = "txRef"
)

const (
	StatusOK        = 200
	StatusCreated   = 201
	StatusNoContent = 204

	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusForbidden    = 403
	StatusNotFound     = 404
	StatusConflict     = 409
	StatusGone         = 410

	StatusInternalServerError = 500
	StatusBadGateway          = 502
	StatusGatewayTimeout      = 504
)
