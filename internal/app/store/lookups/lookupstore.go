// Package lookupstore manages admin-curated name lists. Camp categories and
// member skills each use their own collection with the same shape.
package lookupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections served by this store.
const (
	Categories = "categories"
	Skills     = "skills"
)

// ErrDuplicateName is returned when the folded name is already used.
var ErrDuplicateName = errors.New("an entry with this name already exists")

type Store struct {
	c *mongo.Collection
}

// New returns a store over coll, normally Categories or Skills.
func New(db *mongo.Database, coll string) *Store {
	return &Store{c: db.Collection(coll)}
}

// List returns entries ordered by name. activeOnly hides retired entries.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Lookup, error) {
	q := bson.M{}
	if activeOnly {
		q["is_active"] = true
	}
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Lookup{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, name, description string) (models.Lookup, error) {
	now := time.Now().UTC()
	l := models.Lookup{
		ID:          primitive.NewObjectID(),
		Name:        normalize.Name(name),
		NameCI:      text.Fold(name),
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Lookup{}, ErrDuplicateName
		}
		return models.Lookup{}, err
	}
	return l, nil
}

// Update changes the name, description or active flag. Nil arguments are
// left alone.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description *string, active *bool) (*models.Lookup, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil {
		set["name"] = normalize.Name(*name)
		set["name_ci"] = text.Fold(*name)
	}
	if description != nil {
		set["description"] = *description
	}
	if active != nil {
		set["is_active"] = *active
	}
	var l models.Lookup
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&l)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return &l, nil
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
