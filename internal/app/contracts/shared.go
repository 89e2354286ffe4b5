package contracts

import (
	"context"
	"time"

	"carelink-service/internal/app/models"
)

type RedisRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type SessionService interface {
	GetSessionData(ctx context.Context, sessionID string) (string, error)
	ParseSessionData(ctx context.Context, sessionData string) (*models.Session, error)
}

type DoctorRepository interface {
	FindByID(ctx context.Context, doctorID string) (*models.Doctor, error)
}

type PatientRepository interface {
	FindByID(ctx context.Context, patientID string) (*models.Patient, error)
}

// TransactionCoordinator wraps multi-document mutations. WithTransaction
// runs fn inside a store transaction; WithCompensation pairs a write
// with its undo for the cases a transaction cannot cover, so every such
// write has exactly one symmetric rollback path.
type TransactionCoordinator interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithCompensation(ctx context.Context, action func(ctx context.Context) error, compensate func(ctx context.Context) error) error
}

// EventPublisher emits lifecycle events for downstream collaborators.
// Publishing is best-effort; failures must not fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}
