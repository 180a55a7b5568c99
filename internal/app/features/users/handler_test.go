package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/camphub/internal/app/features/users"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*users.Handler, *mongo.Database, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return users.NewHandler(db, nil, zap.NewNop()), db, testutil.NewFixtures(t, db)
}

func serve(fn http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fn(rec, r)
	return rec
}

func TestUpdateProfile_Partial(t *testing.T) {
	h, db, fx := setup(t)
	ctx := context.Background()
	u := fx.CreatePersonal(ctx, "Old", "Name", "p@example.com")

	r := testutil.WithUser(testutil.JSONRequest(t, http.MethodPut, "/api/users/profile", map[string]any{
		"firstName":   "  New ",
		"playaName":   "Sparkles",
		"yearsBurned": 7,
		"bio":         "<b>Hello</b> <script>x</script>there",
		"skills":      []string{"Welding", " Welding ", ""},
		"_id":         "ignored", // the SPA sends whole documents
	}), testutil.FromModel(u))
	rec := serve(h.UpdateProfile, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := userstore.New(db).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.FirstName)
	assert.Equal(t, "Name", got.LastName)
	assert.Equal(t, "new name", got.NameCI)
	assert.Equal(t, "Sparkles", got.PlayaName)
	assert.Equal(t, 7, got.YearsBurned)
	assert.NotContains(t, got.Bio, "<")
	assert.NotContains(t, got.Bio, "x")
	assert.Equal(t, []string{"Welding"}, got.Skills)
	assert.Equal(t, "Reno", got.City, "untouched fields survive")
}

func TestUpdateProfile_Validation(t *testing.T) {
	h, _, fx := setup(t)
	u := fx.CreatePersonal(context.Background(), "A", "B", "p@example.com")

	cases := map[string]map[string]any{
		"years too high":     {"yearsBurned": 51},
		"years negative":     {"yearsBurned": -1},
		"bio too long":       {"bio": strings.Repeat("a", users.MaxBioLen+1)},
		"playa too long":     {"playaName": strings.Repeat("p", users.MaxPlayaNameLen+1)},
		"instagram too long": {"socialMedia": map[string]any{"instagram": strings.Repeat("i", 201)}},
		"city too long":      {"location": map[string]any{"city": strings.Repeat("c", 101)}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r := testutil.WithUser(testutil.JSONRequest(t, http.MethodPut, "/api/users/profile", body), testutil.FromModel(u))
			rec := serve(h.UpdateProfile, r)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdatePreferences(t *testing.T) {
	h, _, fx := setup(t)
	u := fx.CreatePersonal(context.Background(), "A", "B", "p@example.com")

	r := testutil.WithUser(testutil.JSONRequest(t, http.MethodPut, "/api/users/preferences", map[string]any{
		"smsNotifications": true,
	}), testutil.FromModel(u))
	rec := serve(h.UpdatePreferences, r)
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := testutil.DecodeJSON(t, rec)["preferences"].(map[string]any)
	assert.Equal(t, true, prefs["smsNotifications"])
}

func TestGetPublic(t *testing.T) {
	h, db, fx := setup(t)
	ctx := context.Background()
	u := fx.CreatePersonal(ctx, "Pub", "Lic", "pub@example.com")

	r := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/api/users/public/"+u.ID.Hex()), "id", u.ID.Hex())
	rec := serve(h.GetPublic, r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pub@example.com")
	assert.NotContains(t, rec.Body.String(), "555-0100")

	require.NoError(t, userstore.New(db).SetActive(ctx, u.ID, false))
	rec = serve(h.GetPublic, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bad := testutil.WithChiURLParam(testutil.NewRequest(http.MethodGet, "/api/users/public/nope"), "id", "nope")
	assert.Equal(t, http.StatusBadRequest, serve(h.GetPublic, bad).Code)
}

func TestSearch_CampAccountsOnly(t *testing.T) {
	h, db, fx := setup(t)
	ctx := context.Background()
	person := fx.CreatePersonal(ctx, "Dusty", "Rhodes", "dusty@example.com")
	campUser, _ := fx.CreateCampAccount(ctx, "Camp", "camp", "camp@example.com")

	tokens, err := auth.NewTokenManager("test-jwt-secret-must-be-32-chars-long!", 0, zap.NewNop())
	require.NoError(t, err)
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), zap.NewNop())
	router := chi.NewRouter()
	router.Mount("/api/users", users.Routes(h, mw))

	search := func(u models.User) *httptest.ResponseRecorder {
		tok, err := tokens.Issue(u.ID.Hex())
		require.NoError(t, err)
		r := testutil.NewRequest(http.MethodGet, "/api/users/search?q=dus")
		r.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, search(person).Code)

	rec := search(campUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	found := testutil.DecodeJSON(t, rec)["users"].([]any)
	require.Len(t, found, 1)
	assert.Equal(t, "dusty@example.com", found[0].(map[string]any)["email"])
}

func TestDeleteAccount(t *testing.T) {
	h, db, fx := setup(t)
	ctx := context.Background()
	u := fx.CreatePersonal(ctx, "A", "B", "p@example.com")

	rec := serve(h.DeleteAccount, testutil.WithUser(testutil.NewRequest(http.MethodDelete, "/api/users/account"), testutil.FromModel(u)))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := userstore.New(db).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}
