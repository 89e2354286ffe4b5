package routers

import (
	"carelink-service/internal/app/delivery/http/middlewares"
	"carelink-service/internal/app/services/core/appointments"
	"carelink-service/internal/app/services/core/payments"

	"github.com/go-chi/chi/v5"
)

func attachAppointmentRoutes(router chi.Router, middlewares *middlewares.Middlewares, appointmentController *appointments.AppointmentController, paymentController *payments.PaymentController) {
	router.Use(middlewares.Authenticate)

	router.Post("/{appointmentId}/accept", appointmentController.AcceptAppointment)
	router.Post("/{appointmentId}/reject", appointmentController.RejectAppointment)
	router.Post("/{appointmentId}/cancel", appointmentController.CancelAppointment)
	router.Post("/{appointmentId}/complete", appointmentController.CompleteAppointment)
	router.Post("/{appointmentId}/reschedule", appointmentController.RequestReschedule)
	router.Post("/{appointmentId}/reschedule/accept", appointmentController.AcceptReschedule)
	router.Post("/{appointmentId}/reschedule/reject", appointmentController.RejectReschedule)
	router.Post("/{appointmentId}/payments", paymentController.InitiatePayment)
}
