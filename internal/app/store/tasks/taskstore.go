package taskstore

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
	// MaxCodeAttempts bounds the search for an unused task code.
	MaxCodeAttempts = 100
)

// ErrNoCode is returned when no unused task code was found.
var ErrNoCode = errors.New("could not generate a unique task code")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

// RandomCode returns "T" followed by five characters of [A-Z0-9].
func RandomCode() (string, error) {
	b := make([]byte, 1+codeLength)
	b[0] = 'T'
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 1; i < len(b); i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Create inserts t under a fresh unique task code.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	now := time.Now().UTC()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if t.Status == "" {
		t.Status = models.TaskOpen
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []primitive.ObjectID{}
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	for i := 0; i < MaxCodeAttempts; i++ {
		code, err := RandomCode()
		if err != nil {
			return models.Task{}, err
		}
		t.TaskCode = code
		_, err = s.c.InsertOne(ctx, t)
		if err == nil {
			return t, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Task{}, err
		}
	}
	return models.Task{}, ErrNoCode
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

var listSort = options.Find().SetSort(bson.D{{Key: "status", Value: -1}, {Key: "due_date", Value: 1}, {Key: "created_at", Value: -1}})

// ListByCamp returns the camp's tasks, open ones first.
func (s *Store) ListByCamp(ctx context.Context, campID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"camp_id": campID}, listSort)
}

// ListAssigned returns the tasks assigned to user.
func (s *Store) ListAssigned(ctx context.Context, user primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"assigned_to": user}, listSort)
}

func eventFilter(eventID primitive.ObjectID) bson.M {
	return bson.M{"type": models.TaskVolunteerShift, "metadata.event_id": eventID}
}

// ListForEvent returns the volunteer shift tasks generated from eventID.
func (s *Store) ListForEvent(ctx context.Context, eventID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, eventFilter(eventID), listSort)
}

// DeleteForEvent removes the event's volunteer shift tasks. When users is
// non-empty only tasks assigned to one of them go.
func (s *Store) DeleteForEvent(ctx context.Context, eventID primitive.ObjectID, users []primitive.ObjectID) (int64, error) {
	f := eventFilter(eventID)
	if len(users) > 0 {
		f["assigned_to"] = bson.M{"$in": users}
	}
	res, err := s.c.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CloseOpenForEvent closes one open volunteer shift task of user for
// eventID. It reports false when there was none.
func (s *Store) CloseOpenForEvent(ctx context.Context, user, eventID primitive.ObjectID) (bool, error) {
	f := eventFilter(eventID)
	f["assigned_to"] = user
	f["status"] = models.TaskOpen
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, f, bson.M{"$set": bson.M{
		"status": models.TaskClosed, "completed_at": now, "completed_by": user, "updated_at": now,
	}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Update applies set and returns the new document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Task, error) {
	set["updated_at"] = time.Now().UTC()
	return s.updateAndGet(ctx, id, bson.M{"$set": set})
}

// SetStatus closes or reopens a task. Closing stamps completed_at/by;
// reopening clears them.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string, by primitive.ObjectID) (*models.Task, error) {
	now := time.Now().UTC()
	if status == models.TaskClosed {
		return s.updateAndGet(ctx, id, bson.M{"$set": bson.M{
			"status": status, "completed_at": now, "completed_by": by, "updated_at": now,
		}})
	}
	return s.updateAndGet(ctx, id, bson.M{
		"$set":   bson.M{"status": status, "updated_at": now},
		"$unset": bson.M{"completed_at": "", "completed_by": ""},
	})
}

// Assign adds users to the assignee list without duplicates.
func (s *Store) Assign(ctx context.Context, id primitive.ObjectID, users []primitive.ObjectID) (*models.Task, error) {
	return s.updateAndGet(ctx, id, bson.M{
		"$addToSet": bson.M{"assigned_to": bson.M{"$each": users}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
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

// DeleteForAccounts deletes tasks of camps and tasks created by users, and
// unassigns users from every remaining task. It returns the number deleted.
func (s *Store) DeleteForAccounts(ctx context.Context, users, camps []primitive.ObjectID) (int64, error) {
	var or []bson.M
	if len(users) > 0 {
		or = append(or, bson.M{"created_by": bson.M{"$in": users}})
	}
	if len(camps) > 0 {
		or = append(or, bson.M{"camp_id": bson.M{"$in": camps}})
	}
	if len(or) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": or})
	if err != nil {
		return 0, err
	}
	if len(users) > 0 {
		if _, err := s.c.UpdateMany(ctx,
			bson.M{"assigned_to": bson.M{"$in": users}},
			bson.M{"$pull": bson.M{"assigned_to": bson.M{"$in": users}}},
		); err != nil {
			return res.DeletedCount, err
		}
	}
	return res.DeletedCount, nil
}

func (s *Store) updateAndGet(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Task, error) {
	var t models.Task
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Task, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
