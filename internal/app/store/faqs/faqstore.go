package faqstore

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
	return &Store{c: db.Collection("faqs")}
}

var displaySort = options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "order", Value: 1}, {Key: "_id", Value: 1}})

// ListActive returns active FAQs for audience (plus those for both) in
// category, ordered by category then order. Empty arguments match all.
func (s *Store) ListActive(ctx context.Context, audience, category string) ([]models.FAQ, error) {
	q := bson.M{"is_active": true}
	if audience != "" && audience != models.AudienceBoth {
		q["audience"] = bson.M{"$in": []string{audience, models.AudienceBoth}}
	}
	if category != "" {
		q["category"] = category
	}
	return s.find(ctx, q)
}

// ListAll returns every FAQ for the admin editor.
func (s *Store) ListAll(ctx context.Context) ([]models.FAQ, error) {
	return s.find(ctx, bson.M{})
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FAQ, error) {
	var f models.FAQ
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) Create(ctx context.Context, f models.FAQ) (models.FAQ, error) {
	now := time.Now().UTC()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.Audience == "" {
		f.Audience = models.AudienceBoth
	}
	if f.Order < 1 {
		f.Order = 1
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.FAQ{}, err
	}
	return f, nil
}

// Update applies set and returns the new document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.FAQ, error) {
	set["updated_at"] = time.Now().UTC()
	var f models.FAQ
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&f)
	if err != nil {
		return nil, err
	}
	return &f, nil
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

// SeedIfEmpty inserts faqs only when the collection has none. It reports
// how many were inserted.
func (s *Store) SeedIfEmpty(ctx context.Context, faqs []models.FAQ) (int, error) {
	n, err := s.c.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(faqs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(faqs))
	for _, f := range faqs {
		if f.ID.IsZero() {
			f.ID = primitive.NewObjectID()
		}
		f.CreatedAt, f.UpdatedAt = now, now
		docs = append(docs, f)
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.InsertedIDs), nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.FAQ, error) {
	cur, err := s.c.Find(ctx, filter, displaySort)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.FAQ{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
