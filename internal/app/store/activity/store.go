// internal/app/store/activity/store.go
package activity

import (
	"context"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit caps list queries that do not specify a limit.
const DefaultLimit = 100

// Store manages the activity_logs collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_logs")}
}

// Create records a new activity entry.
func (s *Store) Create(ctx context.Context, a models.ActivityLog) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, a)
	return err
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	EntityType   string
	EntityID     *primitive.ObjectID
	ActingUserID *primitive.ObjectID
	ActivityType string
	Limit        int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if f.EntityType != "" {
		q["entity_type"] = f.EntityType
	}
	if f.EntityID != nil {
		q["entity_id"] = *f.EntityID
	}
	if f.ActingUserID != nil {
		q["acting_user_id"] = *f.ActingUserID
	}
	if f.ActivityType != "" {
		q["activity_type"] = f.ActivityType
	}
	return q
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.ActivityLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	return s.find(ctx, f.query(), opts)
}

// History returns entries about id or performed by id, newest first.
func (s *Store) History(ctx context.Context, id primitive.ObjectID, limit int64) ([]models.ActivityLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	return s.find(ctx, forIDs([]primitive.ObjectID{id}), opts)
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.ActivityLog, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ActivityLog{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountFor counts entries about or by any of ids.
func (s *Store) CountFor(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, forIDs(ids))
}

// DeleteFor removes entries about or by any of ids.
func (s *Store) DeleteFor(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, forIDs(ids))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func forIDs(ids []primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"entity_id": bson.M{"$in": ids}},
		bson.M{"acting_user_id": bson.M{"$in": ids}},
	}}
}
