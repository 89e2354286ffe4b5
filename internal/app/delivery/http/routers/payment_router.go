package routers

import (
	"carelink-service/internal/app/delivery/http/middlewares"
	"carelink-service/internal/app/services/core/payments"

	"github.com/go-chi/chi/v5"
)

func attachPaymentRoutes(router chi.Router, middlewares *middlewares.Middlewares, paymentController *payments.PaymentController) {
	// The gateway authenticates the webhook by signature and the
	// callback by re-verification, not by bearer token.
	router.Post("/webhook", paymentController.HandleWebhook)
	router.Get("/chapa/callback", paymentController.HandleCallback)

	router.With(middlewares.Authenticate).Post("/{paymentId}/initialize", paymentController.InitializeCheckout)
}
