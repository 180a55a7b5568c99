package memberstore

import (
	"context"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// Activate creates or reactivates the (camp, user) member as an active
// regular member and returns it. application may be nil for manual adds.
func (s *Store) Activate(ctx context.Context, camp, user primitive.ObjectID, application *primitive.ObjectID) (*models.Member, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":     models.MemberActive,
		"joined_at":  now,
		"updated_at": now,
	}
	if application != nil {
		set["application"] = *application
	}
	var m models.Member
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"camp": camp, "user": user},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"role":       models.MemberRoleMember,
				"created_at": now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByCampUser returns the (camp, user) member in any status.
func (s *Store) FindByCampUser(ctx context.Context, camp, user primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"camp": camp, "user": user}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsActiveMember reports whether user is an active member of camp.
func (s *Store) IsActiveMember(ctx context.Context, camp, user primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx,
		bson.M{"camp": camp, "user": user, "status": models.MemberActive},
		options.Count().SetLimit(1))
	return n > 0, err
}

// ListActive returns the camp's active members.
func (s *Store) ListActive(ctx context.Context, camp primitive.ObjectID) ([]models.Member, error) {
	return s.find(ctx, bson.M{"camp": camp, "status": models.MemberActive},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
}

// CountActive counts the camp's active members.
func (s *Store) CountActive(ctx context.Context, camp primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"camp": camp, "status": models.MemberActive})
}

// ActiveCampsFor returns the camps in which user is an active member.
func (s *Store) ActiveCampsFor(ctx context.Context, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	ms, err := s.find(ctx, bson.M{"user": user, "status": models.MemberActive}, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.Camp)
	}
	return ids, nil
}

// SetStatus changes a member's status. Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status, notes string) error {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if notes != "" {
		set["review_notes"] = notes
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RejectFor marks the (camp, user) member rejected if one exists.
func (s *Store) RejectFor(ctx context.Context, camp, user primitive.ObjectID, notes string) error {
	set := bson.M{"status": models.MemberRejected, "updated_at": time.Now().UTC()}
	if notes != "" {
		set["review_notes"] = notes
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"camp": camp, "user": user}, bson.M{"$set": set})
	return err
}

// DeleteForAccounts removes member records of users or of camps.
func (s *Store) DeleteForAccounts(ctx context.Context, users, camps []primitive.ObjectID) (int64, error) {
	var or []bson.M
	if len(users) > 0 {
		or = append(or, bson.M{"user": bson.M{"$in": users}})
	}
	if len(camps) > 0 {
		or = append(or, bson.M{"camp": bson.M{"$in": camps}})
	}
	if len(or) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": or})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Member, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Member{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
