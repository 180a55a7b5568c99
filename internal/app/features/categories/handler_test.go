package categories_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/categories"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	tokens *auth.TokenManager
	router chi.Router
	admin  models.User
	burner models.User
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	tokens, err := auth.NewTokenManager("test-jwt-secret-must-be-32-chars-long!", time.Hour, zap.NewNop())
	require.NoError(t, err)
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/api/categories", categories.Routes(categories.NewCategories(db, zap.NewNop()), mw))
	r.Mount("/api/skills", categories.Routes(categories.NewSkills(db, zap.NewNop()), mw))

	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()
	return &env{
		tokens: tokens,
		router: r,
		admin:  fx.CreateAdmin(ctx, "root@camphub.test"),
		burner: fx.CreatePersonal(ctx, "Bea", "Burner", "bea@example.com"),
	}
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

func TestCategories_CRUD(t *testing.T) {
	e := setup(t)

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/categories/", map[string]string{"name": "Sound Camp"}), &e.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Item models.Lookup `json:"item"`
	}
	testutil.DecodeInto(t, rec, &created)
	assert.Equal(t, "Sound Camp", created.Item.Name)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/categories/", map[string]string{"name": "  sound CAMP "}), &e.admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	inactive := false
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, "/api/categories/"+created.Item.ID.Hex(),
		map[string]any{"isActive": &inactive}), &e.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/categories/"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, testutil.DecodeJSON(t, rec)["categories"], "retired entries hidden from the public")

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/categories/"), &e.admin)
	assert.Len(t, testutil.DecodeJSON(t, rec)["categories"], 1)

	rec = e.do(t, testutil.NewRequest(http.MethodDelete, "/api/categories/"+created.Item.ID.Hex()), &e.admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, testutil.NewRequest(http.MethodDelete, "/api/categories/"+created.Item.ID.Hex()), &e.admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSkills_WritesNeedAdmin(t *testing.T) {
	e := setup(t)

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/skills/", map[string]string{"name": "Welding"}), &e.burner)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/skills/", map[string]string{"name": ""}), &e.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/skills/", map[string]string{"name": "Welding"}), &e.admin)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/skills/"), &e.burner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.DecodeJSON(t, rec)["skills"], 1)
}
