package bootstrap

import (
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureAdmin(ctx, db, "Root@CampHub.test", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"email": "root@camphub.test"}).Decode(&user); err != nil {
		t.Fatalf("failed to find created user: %v", err)
	}
	if user.AccountType != models.AccountAdmin {
		t.Errorf("expected account type 'admin', got %q", user.AccountType)
	}
	if !user.IsActive {
		t.Error("expected admin to be active")
	}
	if user.PasswordHash == "" {
		t.Error("expected a random password hash")
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	existing := fx.CreatePersonal(ctx, "Pat", "Promoted", "pat@example.com")
	if _, err := db.Collection("users").UpdateByID(ctx, existing.ID, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if err := ensureAdmin(ctx, db, "pat@example.com", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": existing.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if user.AccountType != models.AccountAdmin {
		t.Errorf("expected account type 'admin', got %q", user.AccountType)
	}
	if !user.IsActive {
		t.Error("expected promoted admin to be reactivated")
	}
	n, err := db.Collection("users").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected no new user, found %d", n)
	}
}

func TestEnsureAdmin_AlreadyAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateAdmin(ctx, "root@camphub.test")

	if err := ensureAdmin(ctx, db, admin.Email, testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": admin.ID}).Decode(&user); err != nil {
		t.Fatalf("failed to find user: %v", err)
	}
	if !user.UpdatedAt.Equal(admin.UpdatedAt.Truncate(time.Millisecond)) {
		t.Errorf("expected admin to be left untouched, updated_at moved to %v", user.UpdatedAt)
	}
}

func TestRunMaintenance_RepairsOwners(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	_, camp := fx.CreateCampAccount(ctx, "Orphan Camp", "orphan-camp", "lead@orphan.test")
	if _, err := db.Collection("camps").UpdateByID(ctx, camp.ID, bson.M{"$unset": bson.M{"owner": ""}}); err != nil {
		t.Fatalf("unset owner: %v", err)
	}

	appCfg := AppConfig{AuditLogAuth: "off", AuditLogDomain: "off"}
	runMaintenance(ctx, newMaintenance(db, appCfg, testLogger()), false, appCfg, testLogger())

	var got models.Camp
	if err := db.Collection("camps").FindOne(ctx, bson.M{"_id": camp.ID}).Decode(&got); err != nil {
		t.Fatalf("find camp: %v", err)
	}
	if got.Owner == nil {
		t.Error("expected startup maintenance to restore the camp owner")
	}
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "all", want: time.Time{}},
		{in: "ALL", want: time.Time{}},
		{in: "2025-12-01", want: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2025-12-01T08:30:00Z", want: time.Date(2025, 12, 1, 8, 30, 0, 0, time.UTC)},
		{in: "last tuesday", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSince(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSince(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	good := AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		JWTSecret:     "a-production-secret-that-is-long-enough",
		CookieHashKey: "a-production-cookie-key-that-is-long-enough",
		UploadMaxMB:   10,
	}
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	if err := ValidateConfig(prod, good, testLogger()); err != nil {
		t.Errorf("expected good prod config to pass, got %v", err)
	}

	badURI := good
	badURI.MongoURI = "postgres://nope"
	if err := ValidateConfig(dev, badURI, testLogger()); err == nil {
		t.Error("expected invalid mongo uri to fail")
	}

	devSecret := good
	devSecret.JWTSecret = devJWTSecret
	if err := ValidateConfig(dev, devSecret, testLogger()); err != nil {
		t.Errorf("expected dev secret to be accepted in dev, got %v", err)
	}
	if err := ValidateConfig(prod, devSecret, testLogger()); err == nil {
		t.Error("expected dev secret to be rejected in prod")
	}

	short := good
	short.CookieHashKey = "short"
	if err := ValidateConfig(prod, short, testLogger()); err == nil {
		t.Error("expected short cookie key to be rejected in prod")
	}
}
