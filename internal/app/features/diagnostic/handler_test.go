package diagnostic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/camphub/internal/app/features/diagnostic"
	"github.com/dalemusser/camphub/internal/app/maintenance"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func get(t *testing.T, h *diagnostic.Handler, term string) maintenance.Report {
	t.Helper()
	r := testutil.WithUser(testutil.NewRequest(http.MethodGet, "/account/"+term), testutil.AdminUser())
	rec := httptest.NewRecorder()
	h.Account(rec, testutil.WithChiURLParam(r, "idOrEmail", term))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep maintenance.Report
	testutil.DecodeInto(t, rec, &rep)
	return rep
}

func TestAccount_Healthy(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := diagnostic.NewHandler(maintenance.New(db, nil, zap.NewNop()), zap.NewNop())
	lead, camp := fx.CreateCampAccount(context.Background(), "Fine Camp", "fine-camp", "lead@fine.test")

	rep := get(t, h, lead.Email)
	assert.Equal(t, lead.Email, rep.SearchTerm)
	require.Len(t, rep.Findings.UserByEmail, 1)
	require.Len(t, rep.Findings.OwnedCamps, 1)
	assert.Equal(t, camp.ID, rep.Findings.OwnedCamps[0].ID)
	assert.Empty(t, rep.Issues)
}

func TestAccount_OrphanedCamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := diagnostic.NewHandler(maintenance.New(db, nil, zap.NewNop()), zap.NewNop())
	_, camp := fx.CreateCampAccount(context.Background(), "Lost Camp", "lost-camp", "lead@lost.test")
	_, err := db.Collection("camps").UpdateByID(context.Background(), camp.ID, bson.M{"$unset": bson.M{"owner": ""}})
	require.NoError(t, err)

	rep := get(t, h, camp.ID.Hex())
	require.NotEmpty(t, rep.Issues)
	assert.Equal(t, maintenance.SeverityCritical, rep.Issues[0].Severity)
	require.NotEmpty(t, rep.Recommendations)
	assert.True(t, rep.Recommendations[0].Automated)
}
