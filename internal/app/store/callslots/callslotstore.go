package callslotstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUnavailable is returned when a slot cannot take another participant.
var ErrUnavailable = errors.New("call slot is not available")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("call_slots")}
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create inserts an open slot with no participants.
func (s *Store) Create(ctx context.Context, slot models.CallSlot) (models.CallSlot, error) {
	now := time.Now().UTC()
	if slot.ID.IsZero() {
		slot.ID = primitive.NewObjectID()
	}
	if slot.MaxParticipants < 1 {
		slot.MaxParticipants = 1
	}
	slot.Date = StartOfDay(slot.Date)
	slot.IsAvailable = true
	slot.CurrentParticipants = 0
	slot.Participants = []primitive.ObjectID{}
	slot.CreatedAt = now
	slot.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, slot); err != nil {
		return models.CallSlot{}, err
	}
	return slot, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CallSlot, error) {
	var slot models.CallSlot
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

var dateSort = options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start_time", Value: 1}})

// ListByCamp returns every slot of the camp in date order.
func (s *Store) ListByCamp(ctx context.Context, campID primitive.ObjectID) ([]models.CallSlot, error) {
	return s.find(ctx, bson.M{"camp_id": campID}, dateSort)
}

// ListAvailable returns the camp's open slots dated today or later.
func (s *Store) ListAvailable(ctx context.Context, campID primitive.ObjectID, now time.Time) ([]models.CallSlot, error) {
	return s.find(ctx, bson.M{
		"camp_id":      campID,
		"is_available": true,
		"date":         bson.M{"$gte": StartOfDay(now)},
	}, dateSort)
}

// Update applies set and returns the new document. When set names
// is_available the slot only stays open while a seat is free.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.CallSlot, error) {
	set["updated_at"] = time.Now().UTC()
	if d, ok := set["date"].(time.Time); ok {
		set["date"] = StartOfDay(d)
	}
	lit := bson.M{}
	for k, v := range set {
		lit[k] = bson.M{"$literal": v}
	}
	stages := mongo.Pipeline{{{Key: "$set", Value: lit}}}
	if _, touched := set["is_available"]; touched {
		stages = append(stages, bson.D{{Key: "$set", Value: bson.M{
			"is_available": bson.M{"$and": bson.A{
				"$is_available",
				bson.M{"$lt": bson.A{"$current_participants", "$max_participants"}},
			}},
		}}})
	}
	var out models.CallSlot
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, stages,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Book seats user on the slot. The slot must belong to campID, be open,
// dated today or later and have a free seat; otherwise ErrUnavailable.
// Taking the last seat closes the slot.
func (s *Store) Book(ctx context.Context, id, campID, user primitive.ObjectID) (*models.CallSlot, error) {
	filter := bson.M{
		"_id":          id,
		"camp_id":      campID,
		"is_available": true,
		"date":         bson.M{"$gte": StartOfDay(time.Now())},
		"participants": bson.M{"$ne": user},
		"$expr":        bson.M{"$lt": bson.A{"$current_participants", "$max_participants"}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"current_participants": bson.M{"$add": bson.A{"$current_participants", 1}},
			"participants":         bson.M{"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}, bson.A{user}}},
			"updated_at":           time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{
			"is_available": bson.M{"$lt": bson.A{"$current_participants", "$max_participants"}},
		}}},
	}
	var out models.CallSlot
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Release frees user's seat and reopens the slot. It reports false when
// user held no seat.
func (s *Store) Release(ctx context.Context, id, user primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "participants": user},
		bson.M{
			"$pull": bson.M{"participants": user},
			"$inc":  bson.M{"current_participants": -1},
			"$set":  bson.M{"is_available": true, "updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Delete returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteForAccounts deletes the slots of camps and frees any seat held by
// users. It returns the number of slots deleted.
func (s *Store) DeleteForAccounts(ctx context.Context, users, camps []primitive.ObjectID) (int64, error) {
	var deleted int64
	if len(camps) > 0 {
		res, err := s.c.DeleteMany(ctx, bson.M{"camp_id": bson.M{"$in": camps}})
		if err != nil {
			return 0, err
		}
		deleted = res.DeletedCount
	}
	for _, u := range users {
		if _, err := s.c.UpdateMany(ctx,
			bson.M{"participants": u},
			bson.M{
				"$pull": bson.M{"participants": u},
				"$inc":  bson.M{"current_participants": -1},
				"$set":  bson.M{"is_available": true},
			}); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.CallSlot, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.CallSlot{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
