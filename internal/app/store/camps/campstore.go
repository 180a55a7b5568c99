package campstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
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

// ErrDuplicateSlug is returned when a slug is already used by another camp.
var ErrDuplicateSlug = errors.New("a camp with this slug already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("camps")}
}

// Create inserts c, filling the id, name_ci and timestamps.
func (s *Store) Create(ctx context.Context, c models.Camp) (models.Camp, error) {
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.Name = normalize.Name(c.Name)
	c.NameCI = text.Fold(c.Name)
	c.ContactEmail = normalize.Email(c.ContactEmail)
	if c.Photos == nil {
		c.Photos = []models.Photo{}
	}
	if c.Status == "" {
		c.Status = models.CampActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Camp{}, ErrDuplicateSlug
		}
		return models.Camp{}, err
	}
	return c, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetBySlug returns mongo.ErrNoDocuments if not found.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Camp, error) {
	return s.findOne(ctx, bson.M{"slug": strings.ToLower(strings.TrimSpace(slug))})
}

// FindByOwner returns the camp owned by userID.
func (s *Store) FindByOwner(ctx context.Context, userID primitive.ObjectID) (*models.Camp, error) {
	return s.findOne(ctx, bson.M{"owner": userID})
}

// FindByContactEmail matches contact_email case-insensitively.
func (s *Store) FindByContactEmail(ctx context.Context, email string) ([]models.Camp, error) {
	pattern := "^" + regexp.QuoteMeta(normalize.Email(email)) + "$"
	return s.Find(ctx, bson.M{"contact_email": primitive.Regex{Pattern: pattern, Options: "i"}}, nil)
}

// SlugTaken reports whether candidate belongs to a camp other than exclude.
// Its signature fits slug.Unique once exclude is bound.
func (s *Store) SlugTaken(exclude primitive.ObjectID) func(ctx context.Context, candidate string) (bool, error) {
	return func(ctx context.Context, candidate string) (bool, error) {
		filter := bson.M{"slug": candidate}
		if !exclude.IsZero() {
			filter["_id"] = bson.M{"$ne": exclude}
		}
		n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		return n > 0, err
	}
}

// Update applies set to the camp, keeping name_ci and updated_at in step.
// Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if name, ok := set["name"].(string); ok {
		set["name"] = normalize.Name(name)
		set["name_ci"] = text.Fold(name)
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateAndGet is Update followed by a read of the new document.
func (s *Store) UpdateAndGet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Camp, error) {
	if err := s.Update(ctx, id, set); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetStatus changes the lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.Update(ctx, id, bson.M{"status": status})
}

// SetOwner records userID as the camp owner.
func (s *Store) SetOwner(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.Update(ctx, id, bson.M{"owner": userID})
}

// IncStats adjusts the denormalised counters by the given deltas and
// recomputes acceptance_rate as members over applications.
func (s *Store) IncStats(ctx context.Context, id primitive.ObjectID, members, applications int) error {
	inc := bson.M{}
	if members != 0 {
		inc["stats.total_members"] = members
	}
	if applications != 0 {
		inc["stats.total_applications"] = applications
	}
	if len(inc) == 0 {
		return nil
	}
	var c models.Camp
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": inc, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return err
	}
	rate := AcceptanceRate(c.Stats.TotalMembers, c.Stats.TotalApplications)
	if rate == c.Stats.AcceptanceRate {
		return nil
	}
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"stats.acceptance_rate": rate}})
	return err
}

// AcceptanceRate is members/applications as a percentage rounded to one
// decimal, or 0 with no applications.
func AcceptanceRate(members, applications int) float64 {
	if applications <= 0 || members <= 0 {
		return 0
	}
	r := float64(members) / float64(applications) * 100
	if r > 100 {
		r = 100
	}
	return float64(int(r*10+0.5)) / 10
}

// PushPhotos appends photos to the gallery. When the gallery was empty the
// first new photo becomes primary.
func (s *Store) PushPhotos(ctx context.Context, id primitive.ObjectID, photos []models.Photo) (*models.Camp, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(c.Photos) == 0 && len(photos) > 0 {
		photos[0].IsPrimary = true
	}
	var out models.Camp
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"photos": bson.M{"$each": photos}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplacePhotos overwrites the gallery and primary index.
func (s *Store) ReplacePhotos(ctx context.Context, id primitive.ObjectID, photos []models.Photo, primary int) error {
	return s.Update(ctx, id, bson.M{"photos": photos, "primary_photo_index": primary})
}

// FindByPhotoURL returns the camp whose gallery holds url.
func (s *Store) FindByPhotoURL(ctx context.Context, url string) (*models.Camp, error) {
	return s.findOne(ctx, bson.M{"photos.url": url})
}

// PublicFilter narrows the public camp directory.
type PublicFilter struct {
	Search     string
	City       string
	Theme      string
	Size       string
	Recruiting bool
}

// Query returns the Mongo filter: only active public camps, plus whatever
// the caller asked for.
func (f PublicFilter) Query() bson.M {
	q := bson.M{"status": models.CampActive, "is_public": true}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = []bson.M{{"name": re}, {"description": re}, {"theme": re}}
	}
	if c := strings.TrimSpace(f.City); c != "" {
		q["location.city"] = primitive.Regex{Pattern: regexp.QuoteMeta(c), Options: "i"}
	}
	if t := strings.TrimSpace(f.Theme); t != "" {
		q["theme"] = primitive.Regex{Pattern: regexp.QuoteMeta(t), Options: "i"}
	}
	if f.Size != "" {
		q["camp_size"] = f.Size
	}
	if f.Recruiting {
		q["is_recruiting"] = true
	}
	return q
}

// ListPublic returns one page of the directory ordered by name, and the total.
func (s *Store) ListPublic(ctx context.Context, f PublicFilter, skip, limit int64) ([]models.Camp, int64, error) {
	q := f.Query()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	camps, err := s.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return camps, total, nil
}

// AdminFilter narrows the admin camp list.
type AdminFilter struct {
	Search string
	Status string
}

func (f AdminFilter) Query() bson.M {
	q := bson.M{}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = []bson.M{{"name": re}, {"slug": re}, {"contact_email": re}}
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

// Find runs an arbitrary query.
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Camp, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Camp{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// CountByStatus groups camps by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
			N  int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

// DeleteByIDs removes camps and returns the number deleted.
func (s *Store) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Collection exposes the underlying collection for maintenance migrations
// that work on raw documents.
func (s *Store) Collection() *mongo.Collection { return s.c }

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Camp, error) {
	var c models.Camp
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
