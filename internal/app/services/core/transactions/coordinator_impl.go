package transactions

import (
	"context"
	"sync"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type mongoTransactionCoordinator struct {
	Client *mongo.Client
	Log    *zap.Logger
}

var (
	coordinatorInstance contracts.TransactionCoordinator
	onceCoordinator     sync.Once
)

func NewMongoTransactionCoordinator(client *mongo.Client, logger *zap.Logger) contracts.TransactionCoordinator {
	onceCoordinator.Do(func() {
		instance := &mongoTransactionCoordinator{
			Client: client,
			Log:    logger,
		}
		coordinatorInstance = instance
	})
	return coordinatorInstance
}

func (c *mongoTransactionCoordinator) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := c.Client.StartSession()
	if err != nil {
		return exceptions.ErrMongoDBTransaction(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil {
		if _, ok := err.(*exceptions.CustomError); ok {
			return err
		}
		return exceptions.ErrMongoDBTransaction(err)
	}
	return nil
}

// WithCompensation runs action and, on failure, runs compensate so the
// write preceding the action is undone. A failed compensation is logged
// and the original error still wins.
func (c *mongoTransactionCoordinator) WithCompensation(ctx context.Context, action func(ctx context.Context) error, compensate func(ctx context.Context) error) error {
	err := action(ctx)
	if err == nil {
		return nil
	}

	if compErr := compensate(ctx); compErr != nil {
		requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
		c.Log.Error("transactionCoordinator.WithCompensation compensation failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(compErr),
		)
	}
	return err
}
