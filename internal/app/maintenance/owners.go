// internal/app/maintenance/owners.go
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Owner repair actions.
const (
	OwnerUnchanged = "unchanged"
	OwnerLinked    = "linked"
	OwnerCreated   = "created"
)

// OwnerFix describes what happened to one camp.
type OwnerFix struct {
	CampID   primitive.ObjectID `json:"campId"`
	CampName string             `json:"campName"`
	UserID   primitive.ObjectID `json:"userId,omitempty"`
	Email    string             `json:"email,omitempty"`
	Action   string             `json:"action"`
}

// OwnerReport summarises FixMissingOwners.
type OwnerReport struct {
	Checked int        `json:"checked"`
	Fixed   []OwnerFix `json:"fixed"`
	Skipped []string   `json:"skipped"`
}

// campRef is the slice of a camp document the repairs need. Decoding the
// full model would fail on camps whose photos predate the object format.
type campRef struct {
	ID           primitive.ObjectID  `bson:"_id"`
	Name         string              `bson:"name"`
	Slug         string              `bson:"slug"`
	ContactEmail string              `bson:"contact_email"`
	Owner        *primitive.ObjectID `bson:"owner"`
	CreatedAt    time.Time           `bson:"created_at"`
}

var campRefProjection = bson.M{"name": 1, "slug": 1, "contact_email": 1, "owner": 1, "created_at": 1}

func (s *Service) campRefs(ctx context.Context, filter bson.M) ([]campRef, error) {
	opts := options.Find().SetProjection(campRefProjection).SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.Camps.Collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []campRef
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FixMissingOwners gives every camp created since the cutoff without an
// owner the account matching its contact email, creating a camp account
// when none exists. A zero since checks every camp.
func (s *Service) FixMissingOwners(ctx context.Context, since time.Time) (OwnerReport, error) {
	filter := bson.M{"$or": []bson.M{{"owner": bson.M{"$exists": false}}, {"owner": nil}}}
	if !since.IsZero() {
		filter["created_at"] = bson.M{"$gte": since}
	}
	camps, err := s.campRefs(ctx, filter)
	if err != nil {
		return OwnerReport{}, fmt.Errorf("find camps without owner: %w", err)
	}

	rep := OwnerReport{Checked: len(camps), Fixed: []OwnerFix{}, Skipped: []string{}}
	for _, c := range camps {
		fix, err := s.repairOwner(ctx, c, nil)
		if errors.Is(err, ErrNoContactEmail) {
			rep.Skipped = append(rep.Skipped, c.Name+": no contact email")
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("repair %s: %w", c.ID.Hex(), err)
		}
		rep.Fixed = append(rep.Fixed, fix)
	}

	if len(rep.Fixed) > 0 || len(rep.Skipped) > 0 {
		s.Log.Info("camp owner repair finished",
			zap.Int("checked", rep.Checked),
			zap.Int("fixed", len(rep.Fixed)),
			zap.Strings("skipped", rep.Skipped))
	}
	return rep, nil
}

// RestoreCampOwner repairs one camp. A camp whose owner exists is left
// alone; one with no owner, or an owner pointing at a deleted user, gets
// the account matching its contact email. Returns mongo.ErrNoDocuments for
// an unknown camp.
func (s *Service) RestoreCampOwner(ctx context.Context, campID primitive.ObjectID, actor *primitive.ObjectID) (OwnerFix, error) {
	refs, err := s.campRefs(ctx, bson.M{"_id": campID})
	if err != nil {
		return OwnerFix{}, err
	}
	if len(refs) == 0 {
		return OwnerFix{}, mongo.ErrNoDocuments
	}
	c := refs[0]

	if c.Owner != nil {
		owner, err := s.Users.GetByID(ctx, *c.Owner)
		switch {
		case err == nil:
			if err := s.linkCamp(ctx, owner, c); err != nil {
				return OwnerFix{}, err
			}
			return OwnerFix{CampID: c.ID, CampName: c.Name, UserID: owner.ID, Email: owner.Email, Action: OwnerUnchanged}, nil
		case !errors.Is(err, mongo.ErrNoDocuments):
			return OwnerFix{}, err
		}
	}
	return s.repairOwner(ctx, c, actor)
}

func (s *Service) repairOwner(ctx context.Context, c campRef, actor *primitive.ObjectID) (OwnerFix, error) {
	email := strings.TrimSpace(c.ContactEmail)
	if email == "" {
		return OwnerFix{}, ErrNoContactEmail
	}

	fix := OwnerFix{CampID: c.ID, CampName: c.Name, Action: OwnerLinked}
	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		created, err := s.createCampAccount(ctx, c, email)
		if err != nil {
			return OwnerFix{}, err
		}
		u = &created
		fix.Action = OwnerCreated
	case err != nil:
		return OwnerFix{}, err
	default:
		if err := s.linkCamp(ctx, u, c); err != nil {
			return OwnerFix{}, err
		}
	}

	if err := s.Camps.SetOwner(ctx, c.ID, u.ID); err != nil {
		return OwnerFix{}, err
	}
	fix.UserID = u.ID
	fix.Email = u.Email

	campID := c.ID
	s.Audit.Record(ctx, models.EntityCamp, &campID, actor, models.ActivityOwnerRestored, map[string]any{
		"owner":  u.ID.Hex(),
		"email":  u.Email,
		"action": fix.Action,
	})
	return fix, nil
}

// linkCamp points an account with no camp at c.
func (s *Service) linkCamp(ctx context.Context, u *models.User, c campRef) error {
	if u.CampID != nil {
		return nil
	}
	return s.Users.LinkCamp(ctx, u.ID, c.ID, c.Name, c.Slug)
}

func (s *Service) createCampAccount(ctx context.Context, c campRef, email string) (models.User, error) {
	pw, err := auth.RandomPassword()
	if err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return models.User{}, err
	}
	campID := c.ID
	return s.Users.Create(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		AccountType:  models.AccountCamp,
		Role:         models.RoleCampLead,
		CampID:       &campID,
		CampName:     c.Name,
		URLSlug:      c.Slug,
		AutoCreated:  true,
		Preferences:  models.Preferences{EmailNotifications: true},
	})
}
