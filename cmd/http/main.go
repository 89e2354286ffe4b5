package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carelink-service/internal/app/config"
	"carelink-service/internal/app/delivery/http/middlewares"
	"carelink-service/internal/app/delivery/http/routers"
	"carelink-service/internal/app/drivers/database"
	"carelink-service/internal/app/drivers/logger"
	"carelink-service/internal/app/drivers/messaging"
	"carelink-service/internal/app/services/core/appointments"
	"carelink-service/internal/app/services/core/doctors"
	"carelink-service/internal/app/services/core/patients"
	"carelink-service/internal/app/services/core/payments"
	"carelink-service/internal/app/services/core/schedules"
	"carelink-service/internal/app/services/core/session"
	"carelink-service/internal/app/services/core/transactions"
	"carelink-service/internal/app/services/shared/events"
	"carelink-service/internal/app/services/shared/payment_gateway"
	"carelink-service/internal/app/services/shared/redis"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	zapLogger := logger.NewZapLogger(driverConfig, internalConfig)

	mongoClient := database.NewMongoDB(driverConfig)
	redisClient := database.NewRedisClient(driverConfig)
	rabbitMQConnection := messaging.NewRabbitMQ(driverConfig)
	chiRouter := chi.NewRouter()

	bootstrap := &config.Bootstrap{
		Router:         chiRouter,
		MongoClient:    mongoClient,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQConnection,
		Logger:         zapLogger,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	}
	bootstrapTheApp(bootstrap)

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	logrus.Println("Waiting for pending requests that already received by server to be processed..")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeout),
	)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := bootstrap.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Failed to close application dependencies: %v", err)
	}

	logrus.Println("Server exiting")
}

func bootstrapTheApp(bootstrap *config.Bootstrap) {
	dbName := bootstrap.DriverConfig.MongoDB.DbName

	// Shared
	redisRepository := redis.NewRedisRepository(bootstrap.Redis)
	sessionService := session.NewSessionService(redisRepository)
	eventPublisher := events.NewRabbitMQPublisher(bootstrap.RabbitMQ, bootstrap.InternalConfig.App.EventQueue, bootstrap.Logger)
	chapaService := payment_gateway.NewChapaService(bootstrap.InternalConfig, bootstrap.Logger)
	coordinator := transactions.NewMongoTransactionCoordinator(bootstrap.MongoClient, bootstrap.Logger)

	// Repositories
	doctorRepository := doctors.NewDoctorMongoRepository(bootstrap.MongoClient, dbName)
	patientRepository := patients.NewPatientMongoRepository(bootstrap.MongoClient, dbName)
	scheduleRepository := schedules.NewScheduleMongoRepository(bootstrap.MongoClient, dbName)
	appointmentRepository := appointments.NewAppointmentMongoRepository(bootstrap.MongoClient, dbName)
	paymentRepository := payments.NewPaymentMongoRepository(bootstrap.MongoClient, dbName)

	// Schedules
	slotReserver := schedules.NewSlotReserver(scheduleRepository, appointmentRepository, coordinator, bootstrap.Logger)
	scheduleUsecase := schedules.NewScheduleUsecase(scheduleRepository, doctorRepository, bootstrap.Logger)
	scheduleController := schedules.NewScheduleController(bootstrap.Logger, scheduleUsecase)

	// Payments
	paymentUsecase := payments.NewPaymentUsecase(
		paymentRepository,
		appointmentRepository,
		patientRepository,
		chapaService,
		coordinator,
		eventPublisher,
		bootstrap.InternalConfig,
		bootstrap.Logger,
	)
	paymentController := payments.NewPaymentController(bootstrap.Logger, paymentUsecase)

	// Appointments
	appointmentUsecase := appointments.NewAppointmentUsecase(
		appointmentRepository,
		scheduleRepository,
		slotReserver,
		doctorRepository,
		paymentUsecase,
		coordinator,
		eventPublisher,
		bootstrap.Logger,
	)
	appointmentController := appointments.NewAppointmentController(bootstrap.Logger, appointmentUsecase)

	// Middlewares
	middlewares := middlewares.NewMiddlewares(bootstrap.Logger, sessionService, bootstrap.InternalConfig)

	routers.SetupRoutes(
		bootstrap.Router,
		bootstrap.InternalConfig,
		middlewares,
		appointmentController,
		paymentController,
		scheduleController,
	)
}
