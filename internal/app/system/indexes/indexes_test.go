package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/camphub/internal/app/system/indexes"
	"github.com/dalemusser/camphub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, coll *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":         {"uniq_users_email", "idx_users_googleid", "idx_users_type_active_nameci_id"},
		"camps":         {"uniq_camps_slug", "idx_camps_owner", "idx_camps_public_status_nameci_id"},
		"members":       {"uniq_members_camp_user"},
		"rosters":       {"uniq_rosters_camp_active"},
		"invites":       {"uniq_invites_token"},
		"tasks":         {"uniq_tasks_code"},
		"call_slots":    {"idx_callslots_camp_available_date"},
		"events":        {"idx_events_shift_id"},
		"activity_logs": {"idx_activity_entity_time"},
		"oauth_states":  {"ttl_oauthstates_expires"},
	}
	for coll, names := range want {
		got := indexNames(t, ctx, db.Collection(coll))
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: expected index %s, have %v", coll, n, got)
			}
		}
	}
}

func TestEnsureAll_OneActiveRosterPerCamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	rosters := db.Collection("rosters")
	camp := primitive.NewObjectID()
	if _, err := rosters.InsertOne(ctx, bson.M{"camp": camp, "is_active": true}); err != nil {
		t.Fatalf("insert first active: %v", err)
	}
	if _, err := rosters.InsertOne(ctx, bson.M{"camp": camp, "is_active": false}); err != nil {
		t.Fatalf("inactive rosters must not collide: %v", err)
	}
	if _, err := rosters.InsertOne(ctx, bson.M{"camp": camp, "is_active": false}); err != nil {
		t.Fatalf("inactive rosters must not collide: %v", err)
	}
	if _, err := rosters.InsertOne(ctx, bson.M{"camp": camp, "is_active": true}); err == nil {
		t.Fatal("expected duplicate key error for second active roster")
	}
}

func TestEnsureAll_RenamesIndexWithSameKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := db.Collection("users")
	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_1_old"),
	})
	if err != nil {
		t.Fatalf("create old index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, ctx, users)
	if got["email_1_old"] || !got["uniq_users_email"] {
		t.Errorf("expected old index replaced, have %v", got)
	}
}

func TestEnsureAll_DropsLegacyRosterIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rosters := db.Collection("rosters")
	if _, err := rosters.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "camp", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	if indexNames(t, ctx, rosters)["camp_1"] {
		t.Error("expected legacy camp_1 index to be dropped")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	camps := db.Collection("camps")
	_, _ = camps.InsertOne(ctx, bson.M{"slug": "dust"})
	_, _ = camps.InsertOne(ctx, bson.M{"slug": "dust"})

	err := indexes.EnsureAll(ctx, db)
	if err == nil {
		t.Fatal("expected error when duplicate slugs block the unique index")
	}
}

func TestCollections(t *testing.T) {
	got := indexes.Collections()
	if len(got) == 0 {
		t.Fatal("expected managed collections")
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Errorf("expected sorted, unique names: %v", got)
		}
	}
}
