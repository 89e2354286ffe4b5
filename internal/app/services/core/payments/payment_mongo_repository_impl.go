package payments

import (
	"context"
	"time"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PaymentMongoRepository struct {
	Collection *mongo.Collection
}

func NewPaymentMongoRepository(db *mongo.Client, dbName string) contracts.PaymentRepository {
	return &PaymentMongoRepository{
		Collection: db.Database(dbName).Collection(constvars.MongoCollectionPayments),
	}
}

func (r *PaymentMongoRepository) Create(ctx context.Context, payment *models.Payment) (string, error) {
	result, err := r.Collection.InsertOne(ctx, payment)
	if err != nil {
		return "", exceptions.ErrMongoDBInsertDocument(err)
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (r *PaymentMongoRepository) findOne(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var payment models.Payment
	err := r.Collection.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &payment, nil
}

func (r *PaymentMongoRepository) FindByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *PaymentMongoRepository) FindByAppointmentID(ctx context.Context, appointmentID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"appointmentId": appointmentID})
}

func (r *PaymentMongoRepository) FindByTxRef(ctx context.Context, txRef string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"txRef": txRef})
}

func (r *PaymentMongoRepository) FindByRefundRef(ctx context.Context, refundRef string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"refunds.refundRef": refundRef})
}

func (r *PaymentMongoRepository) SetCheckoutURL(ctx context.Context, paymentID, checkoutURL string) error {
	objectID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return exceptions.ErrMongoDBNotObjectID(err)
	}
	update := bson.M{"$set": bson.M{
		"checkoutUrl": checkoutURL,
		"updatedAt":   time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *PaymentMongoRepository) transition(ctx context.Context, filter, update bson.M) (*models.Payment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var payment models.Payment
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&payment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBUpdateDocument(err)
	}
	return &payment, nil
}

// MarkPaid settles a pending payment. Duplicate webhook deliveries miss
// the status condition and come back nil, which the caller treats as
// already settled.
func (r *PaymentMongoRepository) MarkPaid(ctx context.Context, txRef, gatewayRef, method string, settledAt time.Time) (*models.Payment, error) {
	filter := bson.M{
		"txRef":  txRef,
		"status": models.PaymentPending,
	}
	update := bson.M{"$set": bson.M{
		"status":     models.PaymentPaid,
		"gatewayRef": gatewayRef,
		"method":     method,
		"settledAt":  settledAt,
		"updatedAt":  time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *PaymentMongoRepository) MarkFailed(ctx context.Context, txRef, reason string) (*models.Payment, error) {
	filter := bson.M{
		"txRef":  txRef,
		"status": models.PaymentPending,
	}
	update := bson.M{"$set": bson.M{
		"status":        models.PaymentFailed,
		"failureReason": reason,
		"updatedAt":     time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *PaymentMongoRepository) MarkCancelled(ctx context.Context, paymentID string) (*models.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.PaymentCancelled,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

// AppendRefund queues a refund attempt. The no-pending-refund condition
// lives in the filter so two concurrent cancellations cannot both queue.
func (r *PaymentMongoRepository) AppendRefund(ctx context.Context, paymentID string, refund models.Refund) (*models.Payment, error) {
	objectID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id": objectID,
		"status": bson.M{"$in": []models.PaymentStatus{
			models.PaymentPaid,
			models.PaymentPartiallyRefunded,
		}},
		"refunds": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{"status": models.RefundPending}},
		},
	}
	update := bson.M{
		"$push": bson.M{"refunds": refund},
		"$set": bson.M{
			"status":    models.PaymentRefundInitiated,
			"updatedAt": time.Now(),
		},
	}
	return r.transition(ctx, filter, update)
}

func (r *PaymentMongoRepository) MarkRefundProcessed(ctx context.Context, refundRef string, processedAt time.Time) (*models.Payment, error) {
	filter := bson.M{
		"refunds": bson.M{
			"$elemMatch": bson.M{
				"refundRef": refundRef,
				"status":    models.RefundPending,
			},
		},
	}
	update := bson.M{"$set": bson.M{
		"refunds.$.status":      models.RefundProcessed,
		"refunds.$.processedAt": processedAt,
		"updatedAt":             time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *PaymentMongoRepository) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	objectID, err := primitive.ObjectIDFromHex(paymentID)
	if err != nil {
		return exceptions.ErrMongoDBNotObjectID(err)
	}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}
