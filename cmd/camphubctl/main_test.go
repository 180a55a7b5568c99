package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/dalemusser/camphub/internal/app/maintenance"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// useTestDB points every command at a fresh test database.
func useTestDB(t *testing.T) *testutil.Fixtures {
	t.Helper()
	db := testutil.SetupTestDB(t)
	prev := openService
	openService = func(context.Context) (*maintenance.Service, func(), error) {
		return maintenance.New(db, nil, zap.NewNop()), func() {}, nil
	}
	t.Cleanup(func() { openService = prev })
	return testutil.NewFixtures(t, db)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRepairOwners_All(t *testing.T) {
	fx := useTestDB(t)
	ctx := context.Background()
	_, camp := fx.CreateCampAccount(ctx, "Lost Camp", "lost-camp", "lead@lost.test")
	_, err := fx.DB().Collection("camps").UpdateByID(ctx, camp.ID, bson.M{"$unset": bson.M{"owner": ""}})
	require.NoError(t, err)

	out, err := run(t, "repair", "owners", "--since=all")
	require.NoError(t, err)

	var rep maintenance.OwnerReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Fixed, 1)
	assert.Equal(t, camp.ID, rep.Fixed[0].CampID)
}

func TestRepairOwners_BadSince(t *testing.T) {
	useTestDB(t)
	_, err := run(t, "repair", "owners", "--since=yesterday")
	assert.Error(t, err)
}

func TestAccountDelete_RequiresYes(t *testing.T) {
	fx := useTestDB(t)
	ctx := context.Background()
	u := fx.CreatePersonal(ctx, "Del", "Eted", "del@example.com")

	_, err := run(t, "account", "delete", u.Email)
	require.Error(t, err)
	n, err := fx.DB().Collection("users").CountDocuments(ctx, bson.M{"_id": u.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	out, err := run(t, "account", "delete", u.Email, "--yes")
	require.NoError(t, err)
	var sum maintenance.DeletionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.EqualValues(t, 1, sum.Users)
}

func TestAccountDiagnose(t *testing.T) {
	fx := useTestDB(t)
	lead, _ := fx.CreateCampAccount(context.Background(), "Fine Camp", "fine-camp", "lead@fine.test")

	out, err := run(t, "account", "diagnose", lead.ID.Hex())
	require.NoError(t, err)
	var rep maintenance.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.NotNil(t, rep.Findings.UserByID)
	assert.Equal(t, lead.Email, rep.Findings.UserByID.Email)
}

func TestMigrateStatuses(t *testing.T) {
	fx := useTestDB(t)
	ctx := context.Background()
	_, camp := fx.CreateCampAccount(ctx, "Status Camp", "status-camp", "lead@status.test")
	u := fx.CreatePersonal(ctx, "Al", "Applicant", "al@example.com")
	app := fx.CreateApplication(ctx, u.ID, camp.ID, models.AppPending)
	_, err := fx.DB().Collection("applications").UpdateByID(ctx, app.ID, bson.M{"$set": bson.M{"status": "under_review"}})
	require.NoError(t, err)

	out, err := run(t, "migrate", "statuses")
	require.NoError(t, err)
	var counts map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.EqualValues(t, 1, counts["under_review"])
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	useTestDB(t)
	_, err := run(t, "reset-password", "nobody@example.com", "longenoughpassword")
	assert.ErrorIs(t, err, maintenance.ErrUserNotFound)
}

func TestValidateSchemas(t *testing.T) {
	useTestDB(t)
	out, err := run(t, "validate", "schemas")
	require.NoError(t, err)
	var rep struct {
		Invalid int64 `json:"invalid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Zero(t, rep.Invalid)
}
