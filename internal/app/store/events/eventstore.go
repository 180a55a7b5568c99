package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrShiftFull is returned when a sign-up finds no free seat.
	ErrShiftFull = errors.New("shift is full")
	// ErrAlreadySignedUp is returned when the user already holds a seat.
	ErrAlreadySignedUp = errors.New("already signed up for this shift")
	// ErrNotSignedUp is returned when cancelling a seat the user does not hold.
	ErrNotSignedUp = errors.New("not signed up for this shift")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

// Create inserts e. Shifts get ids, empty sign-up lists and timestamps.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	now := time.Now().UTC()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Status == "" {
		e.Status = models.EventActive
	}
	e.Shifts = prepareShifts(e.Shifts, nil, e.CreatedBy, now)
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// prepareShifts fills ids and defaults. The shift at position i of prev
// lends its id, sign-ups and creation stamp to the shift at position i.
func prepareShifts(shifts, prev []models.Shift, by primitive.ObjectID, now time.Time) []models.Shift {
	out := make([]models.Shift, len(shifts))
	for i, sh := range shifts {
		if i < len(prev) {
			sh.ID = prev[i].ID
			sh.MemberIDs = prev[i].MemberIDs
			sh.CreatedBy = prev[i].CreatedBy
			sh.CreatedAt = prev[i].CreatedAt
		}
		if sh.ID.IsZero() {
			sh.ID = primitive.NewObjectID()
		}
		if sh.MemberIDs == nil {
			sh.MemberIDs = []primitive.ObjectID{}
		}
		if sh.Status == "" {
			sh.Status = models.EventActive
		}
		if sh.CreatedBy.IsZero() {
			sh.CreatedBy = by
		}
		if sh.CreatedAt.IsZero() {
			sh.CreatedAt = now
		}
		sh.UpdatedAt = now
		out[i] = sh
	}
	return out
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByShift returns the event holding shiftID, or mongo.ErrNoDocuments.
func (s *Store) GetByShift(ctx context.Context, shiftID primitive.ObjectID) (*models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"shifts._id": shiftID}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

// ListByCamps returns the events of camps, newest first.
func (s *Store) ListByCamps(ctx context.Context, camps ...primitive.ObjectID) ([]models.Event, error) {
	if len(camps) == 0 {
		return []models.Event{}, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"camp_id": bson.M{"$in": camps}}, newestFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replace rewrites the event's name, description and shifts. Existing
// shifts keep their ids and sign-ups by position.
func (s *Store) Replace(ctx context.Context, prev *models.Event, name, description string, shifts []models.Shift, by primitive.ObjectID) (*models.Event, error) {
	now := time.Now().UTC()
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": prev.ID}, bson.M{"$set": bson.M{
		"event_name":  name,
		"description": description,
		"shifts":      prepareShifts(shifts, prev.Shifts, by, now),
		"updated_at":  now,
	}}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
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

// SignUp adds user to the shift. The seat check and the push are one
// update: the shift must not list user and must have fewer than max
// sign-ups, where max is the capacity the caller read.
func (s *Store) SignUp(ctx context.Context, shiftID, user primitive.ObjectID, max int) (*models.Event, error) {
	if max < 1 {
		return nil, ErrShiftFull
	}
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"shifts": bson.M{"$elemMatch": bson.M{
			"_id":                               shiftID,
			"max_sign_ups":                      max,
			"member_ids":                        bson.M{"$ne": user},
			fmt.Sprintf("member_ids.%d", max-1): bson.M{"$exists": false},
		}}},
		bson.M{
			"$push": bson.M{"shifts.$.member_ids": user},
			"$set":  bson.M{"shifts.$.updated_at": time.Now().UTC(), "updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		if err != nil {
			return nil, err
		}
		return &out, nil
	}
	// Work out why nothing matched.
	e, gerr := s.GetByShift(ctx, shiftID)
	if gerr != nil {
		return nil, gerr
	}
	if sh, ok := e.Shift(shiftID); ok && sh.HasMember(user) {
		return nil, ErrAlreadySignedUp
	}
	return nil, ErrShiftFull
}

// Cancel removes user from the shift.
func (s *Store) Cancel(ctx context.Context, shiftID, user primitive.ObjectID) (*models.Event, error) {
	var out models.Event
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"shifts": bson.M{"$elemMatch": bson.M{"_id": shiftID, "member_ids": user}}},
		bson.M{
			"$pull": bson.M{"shifts.$.member_ids": user},
			"$set":  bson.M{"shifts.$.updated_at": time.Now().UTC(), "updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotSignedUp
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteForAccounts deletes events of camps and events created by users,
// and removes users from every remaining shift.
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
			bson.M{"shifts.member_ids": bson.M{"$in": users}},
			bson.M{"$pull": bson.M{"shifts.$[].member_ids": bson.M{"$in": users}}},
		); err != nil {
			return res.DeletedCount, err
		}
	}
	return res.DeletedCount, nil
}
