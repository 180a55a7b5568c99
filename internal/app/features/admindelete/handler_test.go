package admindelete_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/camphub/internal/app/features/admindelete"
	"github.com/dalemusser/camphub/internal/app/maintenance"
	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*admindelete.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	audit := auditlog.New(activitystore.New(db), zap.NewNop(), auditlog.Config{})
	return admindelete.NewHandler(maintenance.New(db, audit, zap.NewNop()), zap.NewNop()), testutil.NewFixtures(t, db)
}

func deleteReq(t *testing.T, term string, body any) *http.Request {
	r := testutil.JSONRequest(t, http.MethodDelete, "/account/"+term, body)
	r = testutil.WithUser(r, testutil.AdminUser())
	return testutil.WithChiURLParam(r, "idOrEmail", term)
}

func TestDeleteAccount_RequiresConfirmation(t *testing.T) {
	h, fx := newHandler(t)
	u := fx.CreatePersonal(context.Background(), "Keep", "Me", "keep@example.com")

	for _, body := range []any{nil, map[string]string{"confirm": "yes"}} {
		rec := httptest.NewRecorder()
		h.DeleteAccount(rec, deleteReq(t, u.Email, body))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, admindelete.Confirmation, testutil.DecodeJSON(t, rec)["requiredConfirmation"])
	}

	n, err := fx.DB().Collection("users").CountDocuments(context.Background(), bson.M{"_id": u.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDeleteAccount_NotFound(t *testing.T) {
	h, _ := newHandler(t)
	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, deleteReq(t, "ghost@example.com", map[string]string{"confirm": admindelete.Confirmation}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAccount_CampAccount(t *testing.T) {
	h, fx := newHandler(t)
	ctx := context.Background()
	lead, camp := fx.CreateCampAccount(ctx, "Doomed Camp", "doomed-camp", "lead@doomed.test")
	applicant := fx.CreatePersonal(ctx, "Ann", "Applicant", "ann@example.com")
	fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppPending)
	fx.CreateRoster(ctx, camp.ID, "2026", fx.CreateMember(ctx, camp.ID, applicant.ID))

	rec := httptest.NewRecorder()
	h.DeleteAccount(rec, deleteReq(t, lead.Email, map[string]string{"confirm": admindelete.Confirmation}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Success         bool                        `json:"success"`
		DeletionSummary maintenance.DeletionSummary `json:"deletionSummary"`
	}
	testutil.DecodeInto(t, rec, &out)
	assert.True(t, out.Success)
	assert.EqualValues(t, 1, out.DeletionSummary.Users)
	assert.EqualValues(t, 1, out.DeletionSummary.Camps)
	assert.EqualValues(t, 1, out.DeletionSummary.Applications)
	assert.EqualValues(t, 1, out.DeletionSummary.Rosters)
	assert.Equal(t, []string{"Doomed Camp"}, out.DeletionSummary.CampNames)

	db := fx.DB()
	n, err := db.Collection("camps").CountDocuments(ctx, bson.M{"_id": camp.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = db.Collection("users").CountDocuments(ctx, bson.M{"_id": applicant.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "applicant account survives")
}
