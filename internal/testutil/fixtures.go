package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it twice on the same request keeps earlier params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

var testHash string

func passwordHash(t *testing.T) string {
	if testHash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		testHash = string(h)
	}
	return testHash
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreatePersonal creates an active personal account with a complete profile.
func (f *Fixtures) CreatePersonal(ctx context.Context, first, last, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash(f.t),
		AccountType:  models.AccountPersonal,
		Role:         models.RoleMember,
		FirstName:    first,
		LastName:     last,
		NameCI:       text.Fold(first + " " + last),
		PhoneNumber:  "555-0100",
		City:         "Reno",
		YearsBurned:  3,
		Bio:          "Builder and burner.",
		Skills:       []string{"Carpentry"},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateUnassigned creates a freshly registered account that has not
// picked a role yet.
func (f *Fixtures) CreateUnassigned(ctx context.Context, first, last, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash(f.t),
		AccountType:  models.AccountPersonal,
		Role:         models.RoleUnassigned,
		FirstName:    first,
		LastName:     last,
		NameCI:       text.Fold(first + " " + last),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdmin creates an admin account.
func (f *Fixtures) CreateAdmin(ctx context.Context, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash(f.t),
		AccountType:  models.AccountAdmin,
		Role:         models.RoleMember,
		FirstName:    "Site",
		LastName:     "Admin",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateCampAccount creates a camp and the camp account that owns it.
func (f *Fixtures) CreateCampAccount(ctx context.Context, campName, slug, email string) (models.User, models.Camp) {
	f.t.Helper()
	now := time.Now().UTC()
	camp := models.NewCamp(campName, slug, now)
	camp.NameCI = text.Fold(campName)
	camp.IsPublic = true
	camp.ContactEmail = email

	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: passwordHash(f.t),
		AccountType:  models.AccountCamp,
		Role:         models.RoleCampLead,
		CampID:       &camp.ID,
		CampName:     campName,
		URLSlug:      slug,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	camp.Owner = &u.ID

	f.insert(ctx, "camps", camp)
	f.insert(ctx, "users", u)
	return u, camp
}

// CreateCamp creates a public camp without an owning account.
func (f *Fixtures) CreateCamp(ctx context.Context, name, slug string) models.Camp {
	f.t.Helper()
	camp := models.NewCamp(name, slug, time.Now().UTC())
	camp.NameCI = text.Fold(name)
	camp.IsPublic = true
	f.insert(ctx, "camps", camp)
	return camp
}

// CreateApplication creates an application in the given status.
func (f *Fixtures) CreateApplication(ctx context.Context, applicant, camp primitive.ObjectID, status string) models.Application {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.Application{
		ID:        primitive.NewObjectID(),
		Applicant: applicant,
		Camp:      camp,
		ApplicationData: models.ApplicationData{
			Motivation: "I love building things.",
			Experience: "Three burns.",
		},
		Status:        status,
		DuesStatus:    models.DuesUnpaid,
		AppliedAt:     now,
		Messages:      []models.ApplicationMessage{},
		ActionHistory: []models.ActionHistoryEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "applications", a)
	return a
}

// CreateMember creates an active member record.
func (f *Fixtures) CreateMember(ctx context.Context, camp, user primitive.ObjectID) models.Member {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Camp:      camp,
		User:      user,
		Role:      models.MemberRoleMember,
		Status:    models.MemberActive,
		JoinedAt:  &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "members", m)
	return m
}

// CreateRoster creates an active roster holding the given members.
func (f *Fixtures) CreateRoster(ctx context.Context, camp primitive.ObjectID, name string, members ...models.Member) models.Roster {
	f.t.Helper()
	now := time.Now().UTC()
	r := models.Roster{
		ID:        primitive.NewObjectID(),
		Camp:      camp,
		Name:      name,
		IsActive:  true,
		Members:   []models.RosterEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range members {
		r.Members = append(r.Members, models.RosterEntry{
			Member:     m.ID,
			User:       m.User,
			AddedAt:    now,
			DuesStatus: models.DuesUnpaid,
		})
	}
	f.insert(ctx, "rosters", r)
	return r
}
