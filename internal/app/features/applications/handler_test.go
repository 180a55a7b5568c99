package applications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/applications"
	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	callslotstore "github.com/dalemusser/camphub/internal/app/store/callslots"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db     *mongo.Database
	fx     *testutil.Fixtures
	tokens *auth.TokenManager
	router chi.Router
	mail   *testutil.MailRecorder
	events *testutil.EventRecorder
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	tokens, err := auth.NewTokenManager("test-jwt-secret-must-be-32-chars-long!", time.Hour, zap.NewNop())
	require.NoError(t, err)
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), zap.NewNop())

	e := &env{db: db, fx: testutil.NewFixtures(t, db), tokens: tokens,
		mail: &testutil.MailRecorder{}, events: &testutil.EventRecorder{}}
	h := applications.NewHandler(db, e.mail, e.events, nil, nil, "http://app.test", zap.NewNop())
	e.router = chi.NewRouter()
	e.router.Mount("/api/applications", applications.Routes(h, mw))
	return e
}

func (e *env) do(t *testing.T, r *http.Request, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		tok, err := e.tokens.Issue(as.ID.Hex())
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func applyBody(campID string) map[string]any {
	return map[string]any{
		"campId": campID,
		"applicationData": map[string]any{
			"motivation": "<b>Building</b> shade",
			"experience": "Two burns",
		},
	}
}

func TestApply_CreatesPendingOrientation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	_, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &applicant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	app, err := applicationstore.New(e.db).FindActive(ctx, applicant.ID, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppPendingOrientation, app.Status)
	assert.Equal(t, "Building shade", app.ApplicationData.Motivation)

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats.TotalApplications)

	assert.True(t, e.events.Has(notify.CampRoom(camp.ID.Hex()), notify.EventApplicationNew))
	last, ok := e.mail.Last()
	require.True(t, ok)
	assert.Equal(t, "lead@shade.test", last.To)

	// A second attempt is refused while the first is open.
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &applicant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You have already applied to this camp", testutil.DecodeJSON(t, rec)["message"])
}

func TestApply_CallSlotSchedulesCall(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	second := e.fx.CreatePersonal(ctx, "Sandy", "Playa", "sandy@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Call Camp", "call-camp", "lead@call.test")
	slots := callslotstore.New(e.db)
	slot, err := slots.Create(ctx, models.CallSlot{
		CampID: camp.ID, Date: time.Now().UTC().Add(7 * 24 * time.Hour), StartTime: "18:00", EndTime: "18:30",
	})
	require.NoError(t, err)

	body := applyBody(camp.ID.Hex())
	body["callSlotId"] = slot.ID.Hex()
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	app, err := applicationstore.New(e.db).FindActive(ctx, applicant.ID, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppCallScheduled, app.Status)
	require.NotNil(t, app.CallSlot)
	assert.Equal(t, slot.ID, *app.CallSlot)

	booked, err := slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{applicant.ID}, booked.Participants)
	assert.False(t, booked.IsAvailable)

	// The only seat is taken.
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &second)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Selected call slot is not available", testutil.DecodeJSON(t, rec)["message"])
	_, err = applicationstore.New(e.db).FindActive(ctx, second.ID, camp.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	// Rejecting the first applicant frees the seat.
	url := "/api/applications/" + app.ID.Hex() + "/status"
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "rejected"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	freed, err := slots.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, freed.CurrentParticipants)
	assert.True(t, freed.IsAvailable)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &second)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestApply_CallSlotMustBelongToCamp(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	camp := e.fx.CreateCamp(ctx, "Call Camp", "call-camp")
	other := e.fx.CreateCamp(ctx, "Other Camp", "other-camp")
	slot, err := callslotstore.New(e.db).Create(ctx, models.CallSlot{
		CampID: other.ID, Date: time.Now().UTC().Add(7 * 24 * time.Hour), StartTime: "18:00", EndTime: "18:30",
	})
	require.NoError(t, err)

	body := applyBody(camp.ID.Hex())
	body["callSlotId"] = slot.ID.Hex()
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Selected call slot is not available", testutil.DecodeJSON(t, rec)["message"])

	body["callSlotId"] = "slot-1"
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Call slot is not a valid id.", testutil.DecodeJSON(t, rec)["message"])
}

func TestApply_TextLimits(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	camp := e.fx.CreateCamp(ctx, "Shade Camp", "shade-camp")

	tests := []struct {
		name       string
		motivation string
		experience string
		want       string
	}{
		{"motivation too short", "hi", "", "Motivation must be at least 10 characters."},
		{"motivation too long", strings.Repeat("a", 1001), "", "Motivation must be at most 1000 characters."},
		{"experience too long", "Building shade", strings.Repeat("b", 1001), "Experience must be at most 1000 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{
				"campId": camp.ID.Hex(),
				"applicationData": map[string]any{
					"motivation": tt.motivation,
					"experience": tt.experience,
				},
			}
			rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, testutil.DecodeJSON(t, rec)["message"])
		})
	}

	_, err := applicationstore.New(e.db).FindActive(ctx, applicant.ID, camp.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	body := applyBody(camp.ID.Hex())
	body["applicationData"] = map[string]any{"motivation": strings.Repeat("a", 1000), "experience": strings.Repeat("b", 1000)}
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestApply_DuplicateAndReapply(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	camp := e.fx.CreateCamp(ctx, "Shade Camp", "shade-camp")

	t.Run("open application blocks", func(t *testing.T) {
		applicant := e.fx.CreatePersonal(ctx, "Open", "One", "open@example.com")
		e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppUnderReview)
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &applicant)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := testutil.DecodeJSON(t, rec)
		assert.Equal(t, "You have already applied to this camp", body["message"])
		assert.Equal(t, models.AppUnderReview, body["status"])
	})

	for _, status := range []string{models.AppWithdrawn, models.AppRejected} {
		t.Run("after "+status, func(t *testing.T) {
			applicant := e.fx.CreatePersonal(ctx, "Again", status, "again-"+status+"@example.com")
			e.fx.CreateApplication(ctx, applicant.ID, camp.ID, status)
			rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &applicant)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			app, err := applicationstore.New(e.db).FindActive(ctx, applicant.ID, camp.ID)
			require.NoError(t, err)
			assert.Equal(t, models.AppPendingOrientation, app.Status)
		})
	}
}

func TestApply_InviteTokenOnlyCountsForIssuingCamp(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, campA := e.fx.CreateCampAccount(ctx, "Camp A", "camp-a", "lead@a.test")
	campB := e.fx.CreateCamp(ctx, "Camp B", "camp-b")
	invites := invitestore.New(e.db)
	inv, err := invites.Create(ctx, campA.ID, lead.ID, applicant.Email, models.InviteEmail)
	require.NoError(t, err)

	body := applyBody(campB.ID.Hex())
	body["inviteToken"] = inv.Token
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got, err := invites.GetByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InvitePending, got.Status)
	assert.False(t, e.events.Has(notify.CampRoom(campA.ID.Hex()), notify.EventInviteApplied))

	body = applyBody(campA.ID.Hex())
	body["inviteToken"] = inv.Token
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", body), &applicant)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got, err = invites.GetByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, models.InviteApplied, got.Status)
	assert.True(t, e.events.Has(notify.CampRoom(campA.ID.Hex()), notify.EventInviteApplied))
}

func TestApply_Rejections(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")

	t.Run("camp account", func(t *testing.T) {
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &lead)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing motivation", func(t *testing.T) {
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply",
			map[string]any{"campId": camp.ID.Hex()}), &applicant)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown camp", func(t *testing.T) {
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply",
			applyBody("0123456789abcdef01234567")), &applicant)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not recruiting", func(t *testing.T) {
		closed := e.fx.CreateCamp(ctx, "Closed", "closed")
		require.NoError(t, campstore.New(e.db).Update(ctx, closed.ID, bson.M{"accepting_new_members": false}))
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(closed.ID.Hex())), &applicant)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "This camp is not accepting new members", testutil.DecodeJSON(t, rec)["message"])
	})

	t.Run("incomplete profile", func(t *testing.T) {
		bare := e.fx.CreateUnassigned(ctx, "Bare", "Bones", "bare@example.com")
		require.NoError(t, userstore.New(e.db).Update(ctx, bare.ID, bson.M{"role": models.RoleMember}))
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/applications/apply", applyBody(camp.ID.Hex())), &bare)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := testutil.DecodeJSON(t, rec)
		assert.Contains(t, body["incompleteProfile"], "phoneNumber")
	})
}

func TestCheck(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	camp := e.fx.CreateCamp(ctx, "Shade Camp", "shade-camp")
	url := "/api/applications/check/" + camp.ID.Hex()

	body := testutil.DecodeJSON(t, e.do(t, testutil.NewRequest(http.MethodGet, url), &applicant))
	assert.Equal(t, false, body["hasApplied"])
	assert.Nil(t, body["status"])

	e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppRejected)
	body = testutil.DecodeJSON(t, e.do(t, testutil.NewRequest(http.MethodGet, url), &applicant))
	assert.Equal(t, false, body["hasApplied"])
	assert.Equal(t, models.AppRejected, body["status"])
}

func TestCampApplications_Access(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	other, _ := e.fx.CreateCampAccount(ctx, "Other Camp", "other-camp", "lead@other.test")
	e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppPending)
	e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppRejected)

	url := "/api/applications/camp/" + camp.ID.Hex()
	rec := e.do(t, testutil.NewRequest(http.MethodGet, url), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, testutil.DecodeJSON(t, rec)["total"])

	rec = e.do(t, testutil.NewRequest(http.MethodGet, url+"?status=rejected"), &lead)
	assert.EqualValues(t, 1, testutil.DecodeJSON(t, rec)["total"])

	rec = e.do(t, testutil.NewRequest(http.MethodGet, url+"?status=bogus"), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, url), &other)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatus_ApproveAddsToRoster(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppUnderReview)
	require.NoError(t, userstore.New(e.db).Update(ctx, applicant.ID, bson.M{"preferences.email_notifications": true}))

	url := "/api/applications/" + app.ID.Hex() + "/status"
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "approved", "reviewNotes": "Welcome"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	member, err := memberstore.New(e.db).FindByCampUser(ctx, camp.ID, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberActive, member.Status)

	roster, err := rosterstore.New(e.db).Active(ctx, camp.ID)
	require.NoError(t, err)
	assert.True(t, roster.HasUser(applicant.ID))

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats.TotalMembers)

	assert.True(t, e.events.Has(notify.UserRoom(applicant.ID.Hex()), notify.EventApplicationStatus))
	last, ok := e.mail.Last()
	require.True(t, ok)
	assert.Equal(t, applicant.Email, last.To)

	// Re-approving does not add a second roster line or bump the count.
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "approved"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code)
	roster, err = rosterstore.New(e.db).Active(ctx, camp.ID)
	require.NoError(t, err)
	assert.Len(t, roster.Members, 1)
	c, err = campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats.TotalMembers)
}

func TestUpdateStatus_RejectApprovedRemovesFromRoster(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppUnderReview)
	url := "/api/applications/" + app.ID.Hex() + "/status"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "approved"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "rejected", "reviewNotes": "No show"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	member, err := memberstore.New(e.db).FindByCampUser(ctx, camp.ID, applicant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRejected, member.Status)

	roster, err := rosterstore.New(e.db).Active(ctx, camp.ID)
	require.NoError(t, err)
	assert.False(t, roster.HasUser(applicant.ID))

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Stats.TotalMembers)

	got, err := applicationstore.New(e.db).GetByID(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, got.ActionHistory, 2)
	assert.Equal(t, models.AppApproved, got.ActionHistory[1].FromStatus)
}

func TestUpdateStatus_ReapprovalCountsOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppUnderReview)
	url := "/api/applications/" + app.ID.Hex() + "/status"

	steps := []struct {
		status  string
		member  string
		onList  bool
		members int
	}{
		{models.AppApproved, models.MemberActive, true, 1},
		{models.AppUnderReview, models.MemberInactive, false, 0},
		{models.AppApproved, models.MemberActive, true, 1},
	}
	for _, s := range steps {
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": s.status}), &lead)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		member, err := memberstore.New(e.db).FindByCampUser(ctx, camp.ID, applicant.ID)
		require.NoError(t, err)
		assert.Equal(t, s.member, member.Status, "after %s", s.status)

		roster, err := rosterstore.New(e.db).Active(ctx, camp.ID)
		require.NoError(t, err)
		assert.Equal(t, s.onList, roster.HasUser(applicant.ID), "after %s", s.status)

		c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
		require.NoError(t, err)
		assert.Equal(t, s.members, c.Stats.TotalMembers, "after %s", s.status)
	}

	roster, err := rosterstore.New(e.db).Active(ctx, camp.ID)
	require.NoError(t, err)
	assert.Len(t, roster.Members, 1)
}

func TestUpdateStatus_ApproveExistingMemberCountsOnce(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	e.fx.CreateMember(ctx, camp.ID, applicant.ID)
	require.NoError(t, campstore.New(e.db).IncStats(ctx, camp.ID, 1, 0))
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppUnderReview)

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, "/api/applications/"+app.ID.Hex()+"/status",
		map[string]any{"status": "approved"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Stats.TotalMembers)
}

func TestUpdateStatus_Guards(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppPending)
	url := "/api/applications/" + app.ID.Hex() + "/status"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "maybe"}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "approved"}), &applicant)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, "/api/applications/0123456789abcdef01234567/status",
		map[string]any{"status": "approved"}), &lead)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	admin := e.fx.CreateAdmin(ctx, "admin@example.com")
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"status": "under-review"}), &admin)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPostMessage(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	stranger := e.fx.CreatePersonal(ctx, "Some", "One", "someone@example.com")
	app := e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppPending)
	url := "/api/applications/" + app.ID.Hex() + "/message"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{"message": "When is orientation?"}), &applicant)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, e.events.Has(notify.CampRoom(camp.ID.Hex()), notify.EventApplicationMsg))

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{"message": "<i>Friday</i>"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, e.events.Has(notify.UserRoom(applicant.ID.Hex()), notify.EventApplicationMsg))

	got, err := applicationstore.New(e.db).GetByID(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.SenderApplicant, got.Messages[0].From)
	assert.Equal(t, models.SenderCamp, got.Messages[1].From)
	assert.Equal(t, "Friday", got.Messages[1].Message)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{"message": "hi"}), &stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{"message": "   "}), &applicant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset_AdminOnly(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	applicant := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	camp := e.fx.CreateCamp(ctx, "Shade Camp", "shade-camp")
	e.fx.CreateApplication(ctx, applicant.ID, camp.ID, models.AppPending)
	admin := e.fx.CreateAdmin(ctx, "admin@example.com")
	url := "/api/applications/reset/" + applicant.ID.Hex() + "/" + camp.ID.Hex()

	rec := e.do(t, testutil.NewRequest(http.MethodPatch, url), &applicant)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.NewRequest(http.MethodPatch, url), &admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, testutil.DecodeJSON(t, rec)["count"])

	_, err := applicationstore.New(e.db).FindActive(ctx, applicant.ID, camp.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
