package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/validators"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "camps", "applications", "members", "rosters", "invites", "tasks", "faqs", "call_slots", "events", "activity_logs"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestUsersValidator_RejectsBadAccountType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"email":        "ok@example.com",
		"account_type": models.AccountPersonal,
		"role":         models.RoleUnassigned,
	})
	if err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	_, err = db.Collection("users").InsertOne(ctx, bson.M{
		"email":        "bad@example.com",
		"account_type": "superuser",
	})
	if err == nil {
		t.Error("expected validator to reject unknown account_type")
	}
}

func TestTasksValidator_RequiresCodeFormat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	doc := bson.M{
		"task_code":   "TAB12C",
		"camp_id":     primitive.NewObjectID(),
		"title":       "Build shade",
		"description": "Put up the shade structure",
		"status":      models.TaskOpen,
		"created_at":  time.Now(),
	}
	if _, err := db.Collection("tasks").InsertOne(ctx, doc); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	doc["task_code"] = "bad"
	if _, err := db.Collection("tasks").InsertOne(ctx, doc); err == nil {
		t.Error("expected validator to reject malformed task_code")
	}
}

func TestCountInvalid_FindsLegacyPhotos(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	camps := db.Collection("camps")
	_, _ = camps.InsertOne(ctx, bson.M{"name": "Good", "slug": "good", "status": models.CampActive,
		"photos": bson.A{bson.M{"url": "/uploads/a.jpg", "is_primary": true}}})
	_, _ = camps.InsertOne(ctx, bson.M{"name": "Legacy", "slug": "legacy", "status": models.CampActive,
		"photos": bson.A{"/uploads/b.jpg"}})

	n, err := validators.CountInvalid(ctx, db, "camps")
	if err != nil {
		t.Fatalf("CountInvalid failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountInvalid = %d, want 1", n)
	}

	if n, _ := validators.CountInvalid(ctx, db, "nope"); n != 0 {
		t.Errorf("unknown collection should count 0, got %d", n)
	}
}
