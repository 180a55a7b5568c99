package rosters_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/rosters"
	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
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
	h := rosters.NewHandler(db, e.mail, e.events, nil, "http://app.test", zap.NewNop())
	e.router = chi.NewRouter()
	e.router.Mount("/api/rosters", rosters.Routes(h, mw))
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

// campWithMember returns a lead, their camp, and one active member on an
// active roster.
func campWithMember(t *testing.T, e *env) (models.User, models.Camp, models.User, models.Member, models.Roster) {
	t.Helper()
	ctx := context.Background()
	lead, camp := e.fx.CreateCampAccount(ctx, "Shade Camp", "shade-camp", "lead@shade.test")
	u := e.fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	m := e.fx.CreateMember(ctx, camp.ID, u.ID)
	ro := e.fx.CreateRoster(ctx, camp.ID, "2025 Roster", m)
	require.NoError(t, campstore.New(e.db).IncStats(ctx, camp.ID, 1, 0))
	return lead, camp, u, m, ro
}

func TestListAndGet(t *testing.T) {
	e := setup(t)
	lead, _, u, _, ro := campWithMember(t, e)

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters"), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := testutil.DecodeJSON(t, rec)["rosters"].([]any)
	require.Len(t, list, 1)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/"+ro.ID.Hex()), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roster := testutil.DecodeJSON(t, rec)["roster"].(map[string]any)
	members := roster["members"].([]any)
	require.Len(t, members, 1)
	details := members[0].(map[string]any)["userDetails"].(map[string]any)
	assert.Equal(t, u.Email, details["email"])

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/active"), &lead)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025 Roster", testutil.DecodeJSON(t, rec)["roster"].(map[string]any)["name"])
}

func TestAccess(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	_, camp, member, _, ro := campWithMember(t, e)
	other, _ := e.fx.CreateCampAccount(ctx, "Other", "other", "lead@other.test")

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/"+ro.ID.Hex()), &other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters"), &member)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Members may view their camp's active roster.
	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/camp/"+camp.ID.Hex()), &member)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	outsider := e.fx.CreatePersonal(ctx, "Out", "Sider", "out@example.com")
	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/camp/"+camp.ID.Hex()), &outsider)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := e.fx.CreateAdmin(ctx, "admin@example.com")
	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters?campId="+camp.ID.Hex()), &admin)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCreate_ArchivesPreviousAndCopiesMembers(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp, u, _, old := campWithMember(t, e)

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/rosters", map[string]any{"name": "2026 Roster"}), &lead)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	store := rosterstore.New(e.db)
	prev, err := store.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, prev.IsArchived)
	assert.False(t, prev.IsActive)

	active, err := store.Active(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026 Roster", active.Name)
	assert.True(t, active.HasUser(u.ID))
	assert.True(t, e.events.Has(notify.CampRoom(camp.ID.Hex()), notify.EventRosterUpdated))

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/rosters", map[string]any{"name": " "}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenameAndArchive(t *testing.T) {
	e := setup(t)
	lead, _, _, _, ro := campWithMember(t, e)
	url := "/api/rosters/" + ro.ID.Hex()

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"name": "Renamed", "description": "Main crew"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Renamed", testutil.DecodeJSON(t, rec)["roster"].(map[string]any)["name"])

	rec = e.do(t, testutil.NewRequest(http.MethodPut, url+"/archive"), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, testutil.NewRequest(http.MethodPut, url+"/archive"), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Roster is already archived", testutil.DecodeJSON(t, rec)["message"])
}

func TestExport(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, _, _, m, ro := campWithMember(t, e)
	playa := "Sparkle"
	_, err := rosterstore.New(e.db).SetOverrides(ctx, ro.ID, m.ID, models.RosterOverrides{PlayaName: &playa})
	require.NoError(t, err)

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/rosters/"+ro.ID.Hex()+"/export"), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "2025_roster_roster.csv")

	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	recs, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "First Name", recs[0][0])
	assert.Equal(t, "Dusty", recs[1][0])
	assert.Equal(t, "Sparkle", recs[1][3])
	assert.Equal(t, "3", recs[1][5])
}

func TestAddMember_CreatesAccount(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp, _, _, ro := campWithMember(t, e)
	url := "/api/rosters/" + ro.ID.Hex() + "/members"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{
		"firstName": "New", "lastName": "Burner", "email": "New@Example.com", "playaName": "Newbie",
	}), &lead)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := userstore.New(e.db).GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, u.AutoCreated)
	assert.Equal(t, models.AccountPersonal, u.AccountType)

	roster, err := rosterstore.New(e.db).GetByID(ctx, ro.ID)
	require.NoError(t, err)
	assert.True(t, roster.HasUser(u.ID))

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Stats.TotalMembers)

	last, ok := e.mail.Last()
	require.True(t, ok)
	assert.Equal(t, "new@example.com", last.To)
	assert.Contains(t, last.TextBody, "http://app.test/reset-password?token=")

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, url, map[string]any{
		"firstName": "New", "lastName": "Burner", "email": "new@example.com",
	}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User is already a member of this roster", testutil.DecodeJSON(t, rec)["message"])
}

func TestAddMember_Validation(t *testing.T) {
	e := setup(t)
	lead, _, _, _, ro := campWithMember(t, e)
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/rosters/"+ro.ID.Hex()+"/members",
		map[string]any{"firstName": "A", "lastName": "B", "email": "nope"}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveMember(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp, u, m, ro := campWithMember(t, e)
	app := e.fx.CreateApplication(ctx, u.ID, camp.ID, models.AppApproved)

	rec := e.do(t, testutil.NewRequest(http.MethodDelete, "/api/rosters/members/"+m.ID.Hex()), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	roster, err := rosterstore.New(e.db).GetByID(ctx, ro.ID)
	require.NoError(t, err)
	assert.False(t, roster.HasUser(u.ID))

	member, err := memberstore.New(e.db).GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRejected, member.Status)
	assert.Equal(t, rosters.RemovedNote, member.ReviewNotes)

	got, err := applicationstore.New(e.db).GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppRejected, got.Status)
	assert.Equal(t, rosters.RemovedNote, got.ReviewNotes)

	c, err := campstore.New(e.db).GetByID(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Stats.TotalMembers)
}

func TestSetDues_MirrorsApplication(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, camp, u, m, ro := campWithMember(t, e)
	app := e.fx.CreateApplication(ctx, u.ID, camp.ID, models.AppApproved)
	url := "/api/rosters/" + ro.ID.Hex() + "/members/" + m.ID.Hex() + "/dues"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"duesStatus": "Paid"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	roster, err := rosterstore.New(e.db).GetByID(ctx, ro.ID)
	require.NoError(t, err)
	entry, ok := roster.Entry(m.ID)
	require.True(t, ok)
	assert.Equal(t, models.DuesPaid, entry.DuesStatus)

	got, err := applicationstore.New(e.db).GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DuesPaid, got.DuesStatus)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"duesStatus": "Maybe"}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dues status must be one of: Paid, Unpaid.", testutil.DecodeJSON(t, rec)["message"])

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut,
		"/api/rosters/"+ro.ID.Hex()+"/members/0123456789abcdef01234567/dues", map[string]any{"duesStatus": "Paid"}), &lead)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetOverrides_Partial(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	lead, _, _, m, ro := campWithMember(t, e)
	url := "/api/rosters/" + ro.ID.Hex() + "/members/" + m.ID.Hex() + "/overrides"

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"playaName": "Sparkle"}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"yearsBurned": 4}), &lead)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	roster, err := rosterstore.New(e.db).GetByID(ctx, ro.ID)
	require.NoError(t, err)
	entry, _ := roster.Entry(m.ID)
	require.NotNil(t, entry.Overrides.PlayaName)
	assert.Equal(t, "Sparkle", *entry.Overrides.PlayaName)
	require.NotNil(t, entry.Overrides.YearsBurned)
	assert.Equal(t, 4, *entry.Overrides.YearsBurned)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"yearsBurned": 99}), &lead)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
