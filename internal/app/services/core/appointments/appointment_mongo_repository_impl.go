package appointments

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

type AppointmentMongoRepository struct {
	Collection *mongo.Collection
}

func NewAppointmentMongoRepository(db *mongo.Client, dbName string) contracts.AppointmentRepository {
	return &AppointmentMongoRepository{
		Collection: db.Database(dbName).Collection(constvars.MongoCollectionAppointments),
	}
}

func (r *AppointmentMongoRepository) Create(ctx context.Context, appointment *models.Appointment) (string, error) {
	result, err := r.Collection.InsertOne(ctx, appointment)
	if err != nil {
		return "", exceptions.ErrMongoDBInsertDocument(err)
	}
	return result.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (r *AppointmentMongoRepository) FindByID(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	var appointment models.Appointment
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&appointment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &appointment, nil
}

func (r *AppointmentMongoRepository) FindOwned(ctx context.Context, appointmentID, ownerField, ownerID string) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	var appointment models.Appointment
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID, ownerField: ownerID}).Decode(&appointment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &appointment, nil
}

// HasActiveOverlap counts active appointments for one party whose window
// intersects [start, end). Intersection is strict: touching boundaries
// do not overlap.
func (r *AppointmentMongoRepository) HasActiveOverlap(ctx context.Context, partyField, partyID string, start, end time.Time, excludeID string) (bool, error) {
	filter := bson.M{
		partyField: partyID,
		"status":   bson.M{"$nin": models.InactiveAppointmentStatuses},
		"start":    bson.M{"$lt": end},
		"end":      bson.M{"$gt": start},
	}
	if excludeID != "" {
		objectID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return false, exceptions.ErrMongoDBNotObjectID(err)
		}
		filter["_id"] = bson.M{"$ne": objectID}
	}
	count, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, exceptions.ErrMongoDBFindDocument(err)
	}
	return count > 0, nil
}

// transition runs one conditional update and returns the post-image. A
// nil appointment with nil error means the filter matched nothing,
// which callers report without distinguishing absence from wrong state.
func (r *AppointmentMongoRepository) transition(ctx context.Context, filter, update bson.M) (*models.Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var appointment models.Appointment
	err := r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&appointment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBUpdateDocument(err)
	}
	return &appointment, nil
}

func (r *AppointmentMongoRepository) MarkAccepted(ctx context.Context, appointmentID, doctorID string) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":      objectID,
		"doctorId": doctorID,
		"status":   models.AppointmentPending,
	}
	update := bson.M{"$set": bson.M{
		"status":    models.AppointmentAccepted,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) MarkCancelled(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, ownerField, ownerID string, record models.CancellationRecord) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": allowed},
	}
	if ownerField != "" {
		filter[ownerField] = ownerID
	}
	update := bson.M{"$set": bson.M{
		"status":       models.AppointmentCancelled,
		"cancellation": record,
		"updatedAt":    time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

// ReinstateCancelled only matches a cancelled document, so it can never
// clobber a transition someone else made after the failed cancellation.
func (r *AppointmentMongoRepository) ReinstateCancelled(ctx context.Context, appointmentID string, status models.AppointmentStatus) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":    objectID,
		"status": models.AppointmentCancelled,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now(),
		},
		"$unset": bson.M{"cancellation": ""},
	}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) MarkPaymentPending(ctx context.Context, appointmentID, patientID string) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":       objectID,
		"patientId": patientID,
		"status":    bson.M{"$in": []models.AppointmentStatus{models.AppointmentAccepted, models.AppointmentPaymentPending}},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.AppointmentPaymentPending,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) MarkConfirmed(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []models.AppointmentStatus{models.AppointmentAccepted, models.AppointmentPaymentPending}},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.AppointmentConfirmed,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) MarkCompleted(ctx context.Context, appointmentID, doctorID string, status models.AppointmentStatus) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":      objectID,
		"doctorId": doctorID,
		"status":   models.AppointmentConfirmed,
	}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) ReplaceWindow(ctx context.Context, appointmentID, slotID, date string, start, end time.Time) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	filter := bson.M{
		"_id":    objectID,
		"status": models.AppointmentPending,
	}
	update := bson.M{"$set": bson.M{
		"slotId":    slotID,
		"date":      date,
		"start":     start,
		"end":       end,
		"updatedAt": time.Now(),
	}}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) AppendReschedule(ctx context.Context, appointmentID string, allowed []models.AppointmentStatus, entry models.RescheduleEntry) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}
	// The filter carries both append preconditions so a concurrent
	// second request misses instead of double-appending.
	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": allowed},
		"reschedules": bson.M{
			"$not": bson.M{"$elemMatch": bson.M{"status": models.ReschedulePending}},
		},
		"$expr": bson.M{
			"$lt": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$reschedules", bson.A{}}}},
				constvars.RescheduleHistoryCapacity,
			},
		},
	}
	update := bson.M{
		"$push": bson.M{"reschedules": entry},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return r.transition(ctx, filter, update)
}

func (r *AppointmentMongoRepository) ResolveReschedule(ctx context.Context, appointmentID, requestedBy string, requestedAt time.Time, approve bool, respondedAt time.Time) (*models.Appointment, error) {
	objectID, err := primitive.ObjectIDFromHex(appointmentID)
	if err != nil {
		return nil, exceptions.ErrMongoDBNotObjectID(err)
	}

	var current models.Appointment
	err = r.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&current)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	pending := current.PendingReschedule()
	if pending == nil || pending.RequestedBy != requestedBy || !pending.RequestedAt.Equal(requestedAt) {
		return nil, nil
	}

	// The elemMatch pins the exact entry the caller validated. If that
	// entry was rejected and another request appended meanwhile, the
	// filter misses rather than settling the newer entry.
	filter := bson.M{
		"_id": objectID,
		"reschedules": bson.M{
			"$elemMatch": bson.M{
				"status":      models.ReschedulePending,
				"requestedBy": requestedBy,
				"requestedAt": requestedAt,
			},
		},
	}

	resolution := models.RescheduleRejected
	set := bson.M{
		"reschedules.$.respondedAt": respondedAt,
		"updatedAt":                 time.Now(),
	}
	if approve {
		resolution = models.RescheduleApproved
		set["slotId"] = pending.NewSlotID
		set["date"] = pending.NewDate
		set["start"] = pending.NewStart
		set["end"] = pending.NewEnd
		set["status"] = models.AppointmentRescheduled
	}
	set["reschedules.$.status"] = resolution

	return r.transition(ctx, filter, bson.M{"$set": set})
}
