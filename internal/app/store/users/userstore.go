package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadAccountType = errors.New(`account_type must be "personal"|"camp"|"admin"`)
)

// publicProjection is what other users may see.
var publicProjection = bson.M{
	"first_name": 1, "last_name": 1, "playa_name": 1, "profile_photo": 1,
	"bio": 1, "skills": 1, "interests": 1, "years_burned": 1, "city": 1,
	"location": 1, "social_media": 1, "account_type": 1, "created_at": 1,
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetPublic loads the public fields of an active user.
func (s *Store) GetPublic(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetProjection(publicProjection)
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_active": true}, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindAllByEmail matches email case-insensitively, including legacy rows
// that were stored before emails were lowercased.
func (s *Store) FindAllByEmail(ctx context.Context, email string) ([]models.User, error) {
	pattern := "^" + regexp.QuoteMeta(normalize.Email(email)) + "$"
	return s.find(ctx, bson.M{"email": primitive.Regex{Pattern: pattern, Options: "i"}}, nil)
}

// GetByGoogleID looks up a user linked to a Google account.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// New users are active; a missing role becomes "unassigned".
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.NameCI = normalize.NameCI(u.FullName())
	u.IsActive = true
	if u.Role == "" {
		u.Role = models.RoleUnassigned
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	if u.Interests == nil {
		u.Interests = []string{}
	}

	switch u.AccountType {
	case models.AccountPersonal, models.AccountCamp, models.AccountAdmin:
	default:
		return models.User{}, errBadAccountType
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update applies set to the user and stamps updated_at. When set changes
// the name, name_ci should be included by the caller.
// Returns ErrDuplicateEmail if the email already belongs to another user.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	if e, ok := set["email"].(string); ok {
		set["email"] = normalize.Email(e)
	}
	set["updated_at"] = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateAndGet is Update followed by a read of the new document.
func (s *Store) UpdateAndGet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	if err := s.Update(ctx, id, set); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetPassword stores a new bcrypt hash.
func (s *Store) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return s.Update(ctx, id, bson.M{"password_hash": hash})
}

// TouchLogin records a successful sign-in.
func (s *Store) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.Update(ctx, id, bson.M{"last_login": at})
}

// SetActive activates or deactivates an account.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return s.Update(ctx, id, bson.M{"is_active": active})
}

// LinkCamp points a camp account at its camp.
func (s *Store) LinkCamp(ctx context.Context, id, campID primitive.ObjectID, campName, slug string) error {
	return s.Update(ctx, id, bson.M{"camp_id": campID, "camp_name": campName, "url_slug": slug})
}

// SetCampSlug updates url_slug on every account linked to campID.
func (s *Store) SetCampSlug(ctx context.Context, campID primitive.ObjectID, slug string) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"camp_id": campID}, bson.M{"$set": bson.M{"url_slug": slug}})
	return err
}

// SelectRole sets the onboarding role and matching account type, but only
// while the user is still unassigned. Returns mongo.ErrNoDocuments when the
// role was already chosen.
func (s *Store) SelectRole(ctx context.Context, id primitive.ObjectID, role, accountType string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":  id,
		"role": bson.M{"$in": bson.A{models.RoleUnassigned, "", nil}},
	}, bson.M{"$set": bson.M{
		"role":         role,
		"account_type": accountType,
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// FindByIDs returns users keyed by id. Missing ids are absent from the map.
func (s *Store) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

// Search matches a name, email or playa name prefix among active users.
func (s *Store) Search(ctx context.Context, q string, limit int64) ([]models.User, error) {
	q = normalize.QueryParam(q)
	if q == "" {
		return []models.User{}, nil
	}
	prefix := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(normalize.NameCI(q)), Options: ""}
	loose := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q), Options: "i"}
	filter := bson.M{
		"is_active": true,
		"$or": bson.A{
			bson.M{"name_ci": prefix},
			bson.M{"email": loose},
			bson.M{"playa_name": loose},
			bson.M{"first_name": loose},
			bson.M{"last_name": loose},
		},
	}
	opts := options.Find().
		SetProjection(bson.M{"password_hash": 0, "google_id": 0}).
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	return s.find(ctx, filter, opts)
}

// ListFilter narrows List for the admin user screen.
type ListFilter struct {
	Search      string
	AccountType string
	Active      *bool
}

// Query builds the Mongo filter for f.
func (f ListFilter) Query() bson.M {
	q := bson.M{}
	if f.AccountType != "" {
		q["account_type"] = f.AccountType
	}
	if f.Active != nil {
		q["is_active"] = *f.Active
	}
	if s := normalize.QueryParam(f.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"email": re},
			bson.M{"first_name": re},
			bson.M{"last_name": re},
			bson.M{"playa_name": re},
			bson.M{"camp_name": re},
		}
	}
	return q
}

// Find runs an arbitrary filter; used by list screens that build their own
// keyset windows.
func (s *Store) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	return s.find(ctx, filter, opts)
}

// Count counts users matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountByAccountType groups user counts by account_type.
func (s *Store) CountByAccountType(ctx context.Context) (map[string]int64, error) {
	return groupCount(ctx, s.c, "$account_type")
}

// DeleteByIDs removes users. Used only by account deletion.
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

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func groupCount(ctx context.Context, c *mongo.Collection, field string) (map[string]int64, error) {
	cur, err := c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": field, "n": bson.M{"$sum": 1}}}},
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
