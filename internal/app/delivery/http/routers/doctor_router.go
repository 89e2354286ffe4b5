package routers

import (
	"carelink-service/internal/app/delivery/http/middlewares"
	"carelink-service/internal/app/services/core/appointments"
	"carelink-service/internal/app/services/core/schedules"

	"github.com/go-chi/chi/v5"
)

func attachDoctorRoutes(router chi.Router, middlewares *middlewares.Middlewares, appointmentController *appointments.AppointmentController, scheduleController *schedules.ScheduleController) {
	router.Get("/{doctorId}/slots", scheduleController.ListFreeSlots)
	router.With(middlewares.Authenticate).Post("/{doctorId}/slots", scheduleController.CreateSlots)
	router.With(middlewares.Authenticate).Post("/{doctorId}/appointments", appointmentController.RequestAppointment)
}
