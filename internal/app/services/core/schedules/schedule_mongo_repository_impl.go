package schedules

import (
	"context"
	"time"

	"carelink-service/internal/app/contracts"
	"carelink-service/internal/app/models"
	"carelink-service/internal/pkg/constvars"
	"carelink-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ScheduleMongoRepository struct {
	Collection *mongo.Collection
}

func NewScheduleMongoRepository(db *mongo.Client, dbName string) contracts.ScheduleRepository {
	return &ScheduleMongoRepository{
		Collection: db.Database(dbName).Collection(constvars.MongoCollectionSchedules),
	}
}

func (r *ScheduleMongoRepository) FindSlot(ctx context.Context, doctorID, slotID string) (*models.Slot, error) {
	var schedule models.Schedule
	filter := bson.M{
		"doctorId": doctorID,
		"slots.id": slotID,
	}
	projection := options.FindOne().SetProjection(bson.M{"slots.$": 1, "doctorId": 1})
	err := r.Collection.FindOne(ctx, filter, projection).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	if len(schedule.Slots) == 0 {
		return nil, nil
	}
	return &schedule.Slots[0], nil
}

// MarkSlotBooked is the single mutual-exclusion primitive for slot
// reservation. The $elemMatch condition makes the flip atomic: of any
// number of concurrent callers exactly one observes a modified count of
// one.
func (r *ScheduleMongoRepository) MarkSlotBooked(ctx context.Context, doctorID, slotID, patientID string, at time.Time) (bool, error) {
	filter := bson.M{
		"doctorId": doctorID,
		"slots": bson.M{
			"$elemMatch": bson.M{
				"id":       slotID,
				"isBooked": false,
			},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"slots.$.isBooked": true,
			"slots.$.bookedBy": patientID,
			"slots.$.bookedAt": at,
		},
	}
	result, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, exceptions.ErrMongoDBUpdateDocument(err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *ScheduleMongoRepository) ReleaseSlot(ctx context.Context, doctorID, slotID string) error {
	filter := bson.M{
		"doctorId": doctorID,
		"slots": bson.M{
			"$elemMatch": bson.M{
				"id":       slotID,
				"isBooked": true,
			},
		},
	}
	update := bson.M{
		"$set": bson.M{"slots.$.isBooked": false},
		"$unset": bson.M{
			"slots.$.bookedBy": "",
			"slots.$.bookedAt": "",
		},
	}
	// A zero modified count means the slot was already free; releasing
	// twice is a no-op.
	_, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *ScheduleMongoRepository) AddSlots(ctx context.Context, doctorID string, slots []models.Slot) error {
	filter := bson.M{"doctorId": doctorID}
	update := bson.M{
		"$push": bson.M{
			"slots": bson.M{"$each": slots},
		},
	}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpdateDocument(err)
	}
	return nil
}

func (r *ScheduleMongoRepository) FindFreeSlots(ctx context.Context, doctorID string) ([]models.Slot, error) {
	var schedule models.Schedule
	err := r.Collection.FindOne(ctx, bson.M{"doctorId": doctorID}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []models.Slot{}, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	freeSlots := make([]models.Slot, 0, len(schedule.Slots))
	for _, slot := range schedule.Slots {
		if !slot.IsBooked {
			freeSlots = append(freeSlots, slot)
		}
	}
	return freeSlots, nil
}
