package rosterstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrAlreadyArchived is returned when archiving an archived roster.
	ErrAlreadyArchived = errors.New("roster is already archived")
	// ErrAlreadyOnRoster is returned when a user already has a line on the roster.
	ErrAlreadyOnRoster = errors.New("member is already on this roster")
	// ErrActiveExists is returned when a camp already has an active roster.
	ErrActiveExists = errors.New("camp already has an active roster")
	// ErrNotOnRoster is returned when a member has no line on the roster.
	ErrNotOnRoster = errors.New("member is not on this roster")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rosters")}
}

// DefaultName is the name of the roster created on first approval.
func DefaultName(now time.Time) string {
	return fmt.Sprintf("%d Roster", now.Year())
}

// Create inserts r. A second active roster for a camp yields ErrActiveExists.
func (s *Store) Create(ctx context.Context, r models.Roster) (models.Roster, error) {
	now := time.Now().UTC()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.Members == nil {
		r.Members = []models.RosterEntry{}
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Roster{}, ErrActiveExists
		}
		return models.Roster{}, err
	}
	return r, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Roster, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Active returns the camp's active roster or mongo.ErrNoDocuments.
func (s *Store) Active(ctx context.Context, camp primitive.ObjectID) (*models.Roster, error) {
	return s.findOne(ctx, bson.M{"camp": camp, "is_active": true})
}

// EnsureActive returns the camp's active roster, creating one named
// DefaultName when there is none.
func (s *Store) EnsureActive(ctx context.Context, camp primitive.ObjectID, by *primitive.ObjectID) (*models.Roster, bool, error) {
	r, err := s.Active(ctx, camp)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	created, err := s.Create(ctx, models.Roster{
		Camp:      camp,
		Name:      DefaultName(time.Now().UTC()),
		IsActive:  true,
		CreatedBy: by,
	})
	if errors.Is(err, ErrActiveExists) {
		// Lost a race with another approval.
		r, err = s.Active(ctx, camp)
		return r, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return &created, true, nil
}

// ListByCamp returns the camp's rosters, newest first.
func (s *Store) ListByCamp(ctx context.Context, camp primitive.ObjectID) ([]models.Roster, error) {
	return s.find(ctx, bson.M{"camp": camp}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

// Rename updates name and description.
func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name, description string) (*models.Roster, error) {
	return s.updateAndGet(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name": name, "description": description, "updated_at": time.Now().UTC(),
	}})
}

// Archive deactivates and archives a roster.
func (s *Store) Archive(ctx context.Context, id, by primitive.ObjectID) (*models.Roster, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.IsArchived {
		return nil, ErrAlreadyArchived
	}
	now := time.Now().UTC()
	return s.updateAndGet(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active": false, "is_archived": true, "archived_at": now, "archived_by": by, "updated_at": now,
	}})
}

// ArchiveActive archives the camp's active roster, if any.
func (s *Store) ArchiveActive(ctx context.Context, camp, by primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateMany(ctx,
		bson.M{"camp": camp, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "is_archived": true, "archived_at": now, "archived_by": by, "updated_at": now}},
	)
	return err
}

// AddEntry appends e unless its user already has a line.
func (s *Store) AddEntry(ctx context.Context, id primitive.ObjectID, e models.RosterEntry) (*models.Roster, error) {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	if e.DuesStatus == "" {
		e.DuesStatus = models.DuesUnpaid
	}
	r, err := s.updateAndGet(ctx,
		bson.M{"_id": id, "members.user": bson.M{"$ne": e.User}},
		bson.M{"$push": bson.M{"members": e}, "$set": bson.M{"updated_at": e.AddedAt}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, ErrAlreadyOnRoster
	}
	return r, err
}

// RemoveFromActive pulls member from the camp's active roster. It reports
// whether a line was removed.
func (s *Store) RemoveFromActive(ctx context.Context, camp, member primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"camp": camp, "is_active": true},
		bson.M{"$pull": bson.M{"members": bson.M{"member": member}}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetDues sets the dues status on member's line.
func (s *Store) SetDues(ctx context.Context, id, member primitive.ObjectID, dues string) (*models.Roster, error) {
	return s.updateEntry(ctx, id, member, bson.M{"members.$.dues_status": dues})
}

// SetOverrides replaces member's overrides.
func (s *Store) SetOverrides(ctx context.Context, id, member primitive.ObjectID, o models.RosterOverrides) (*models.Roster, error) {
	return s.updateEntry(ctx, id, member, bson.M{"members.$.overrides": o})
}

func (s *Store) updateEntry(ctx context.Context, id, member primitive.ObjectID, set bson.M) (*models.Roster, error) {
	set["updated_at"] = time.Now().UTC()
	r, err := s.updateAndGet(ctx, bson.M{"_id": id, "members.member": member}, bson.M{"$set": set})
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, ErrNotOnRoster
	}
	return r, err
}

// ContainingUsers returns rosters with a line for any of users.
func (s *Store) ContainingUsers(ctx context.Context, users []primitive.ObjectID) ([]models.Roster, error) {
	if len(users) == 0 {
		return []models.Roster{}, nil
	}
	return s.find(ctx, bson.M{"members.user": bson.M{"$in": users}}, nil)
}

// PullUsers removes every line for users across all rosters and returns
// how many lines were removed.
func (s *Store) PullUsers(ctx context.Context, users []primitive.ObjectID) (int64, error) {
	rs, err := s.ContainingUsers(ctx, users)
	if err != nil {
		return 0, err
	}
	want := make(map[primitive.ObjectID]bool, len(users))
	for _, u := range users {
		want[u] = true
	}
	var removed int64
	for _, r := range rs {
		for _, e := range r.Members {
			if want[e.User] {
				removed++
			}
		}
	}
	if removed == 0 {
		return 0, nil
	}
	_, err = s.c.UpdateMany(ctx,
		bson.M{"members.user": bson.M{"$in": users}},
		bson.M{"$pull": bson.M{"members": bson.M{"user": bson.M{"$in": users}}}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Delete removes one roster.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteForCamps removes every roster of camps.
func (s *Store) DeleteForCamps(ctx context.Context, camps []primitive.ObjectID) (int64, error) {
	if len(camps) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"camp": bson.M{"$in": camps}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Duplicate is a user appearing on one roster more than once.
type Duplicate struct {
	RosterID   primitive.ObjectID `json:"rosterId"`
	RosterName string             `json:"rosterName"`
	Camp       primitive.ObjectID `json:"camp"`
	User       primitive.ObjectID `json:"user"`
	Count      int                `json:"count"`
}

// Duplicates scans every roster for repeated users.
func (s *Store) Duplicates(ctx context.Context) ([]Duplicate, error) {
	rs, err := s.find(ctx, bson.M{}, nil)
	if err != nil {
		return nil, err
	}
	var out []Duplicate
	for _, r := range rs {
		seen := map[primitive.ObjectID]int{}
		for _, e := range r.Members {
			seen[e.User]++
		}
		for u, n := range seen {
			if n > 1 {
				out = append(out, Duplicate{RosterID: r.ID, RosterName: r.Name, Camp: r.Camp, User: u, Count: n})
			}
		}
	}
	return out, nil
}

// Dedupe keeps the first line per user on roster id and returns how many
// lines were dropped.
func (s *Store) Dedupe(ctx context.Context, id primitive.ObjectID) (int, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	seen := map[primitive.ObjectID]bool{}
	kept := make([]models.RosterEntry, 0, len(r.Members))
	for _, e := range r.Members {
		if seen[e.User] {
			continue
		}
		seen[e.User] = true
		kept = append(kept, e)
	}
	dropped := len(r.Members) - len(kept)
	if dropped == 0 {
		return 0, nil
	}
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"members": kept, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return dropped, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Roster, error) {
	var r models.Roster
	if err := s.c.FindOne(ctx, filter).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) updateAndGet(ctx context.Context, filter, update bson.M) (*models.Roster, error) {
	var r models.Roster
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Roster, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Roster{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
