package help_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/help"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	fx     *testutil.Fixtures
	tokens *auth.TokenManager
	router chi.Router
	h      *help.Handler
	mail   *testutil.MailRecorder
}

func setup(t *testing.T, limit int) *env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	tokens, err := auth.NewTokenManager("test-jwt-secret-must-be-32-chars-long!", time.Hour, zap.NewNop())
	require.NoError(t, err)
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), zap.NewNop())

	limiter := ratelimit.New(limit, time.Hour)
	t.Cleanup(limiter.Stop)

	e := &env{fx: testutil.NewFixtures(t, db), tokens: tokens, mail: &testutil.MailRecorder{}}
	e.h = help.NewHandler(db, e.mail, "support@camphub.test", limiter, zap.NewNop())
	e.router = chi.NewRouter()
	e.router.Mount("/api/help", help.Routes(e.h, mw))
	e.router.Mount("/api/admin/faqs", help.AdminRoutes(e.h, mw))
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

func TestDefaultFAQs_Parse(t *testing.T) {
	faqs, err := help.DefaultFAQs()
	require.NoError(t, err)
	require.NotEmpty(t, faqs)
	for _, f := range faqs {
		assert.NotEmpty(t, f.Question)
		assert.NotEmpty(t, f.Answer)
		assert.True(t, f.IsActive)
		assert.GreaterOrEqual(t, f.Order, 1)
	}
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	e := setup(t, 5)
	ctx := context.Background()
	require.NoError(t, help.Seed(ctx, e.h.FAQs, zap.NewNop()))
	first, err := e.h.FAQs.ListAll(ctx)
	require.NoError(t, err)

	require.NoError(t, help.Seed(ctx, e.h.FAQs, zap.NewNop()))
	second, err := e.h.FAQs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}

func TestListFAQs_FiltersByAudience(t *testing.T) {
	e := setup(t, 5)
	require.NoError(t, help.Seed(context.Background(), e.h.FAQs, zap.NewNop()))

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/help/faqs?audience=members"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, raw := range testutil.DecodeJSON(t, rec)["faqs"].([]any) {
		assert.NotEqual(t, models.AudienceCamps, raw.(map[string]any)["audience"])
	}

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/help/faqs?category=Billing"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := testutil.DecodeJSON(t, rec)["faqs"].([]any)
	require.Len(t, list, 1)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/help/faqs?audience=everyone"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminFAQs(t *testing.T) {
	e := setup(t, 5)
	ctx := context.Background()
	admin := e.fx.CreateAdmin(ctx, "admin@example.com")
	member := e.fx.CreatePersonal(ctx, "Pat", "Person", "pat@example.com")

	rec := e.do(t, testutil.NewRequest(http.MethodGet, "/api/admin/faqs"), &member)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/admin/faqs", map[string]any{
		"question": "Where is the camp?", "answer": "On the playa.", "category": "General", "audience": "members",
	}), &admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		FAQ models.FAQ `json:"faq"`
	}
	testutil.DecodeInto(t, rec, &out)
	assert.Equal(t, 1, out.FAQ.Order)
	require.NotNil(t, out.FAQ.CreatedBy)
	assert.Equal(t, admin.ID, *out.FAQ.CreatedBy)

	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/admin/faqs", map[string]any{
		"question": "Q", "answer": "A", "category": "Parties",
	}), &admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	url := "/api/admin/faqs/" + out.FAQ.ID.Hex()
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPut, url, map[string]any{"isActive": false, "order": 3}), &admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := e.h.FAQs.GetByID(ctx, out.FAQ.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 3, got.Order)

	rec = e.do(t, testutil.NewRequest(http.MethodDelete, url), &admin)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, testutil.NewRequest(http.MethodDelete, url), &admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func contactBody() map[string]any {
	return map[string]any{
		"name": "Pat", "email": "Pat@Example.com", "subject": "Login trouble",
		"message": "I cannot sign in.", "category": "Account Management",
	}
}

func TestContact_StoresTicketAndEmails(t *testing.T) {
	e := setup(t, 5)
	ctx := context.Background()
	member := e.fx.CreatePersonal(ctx, "Pat", "Person", "pat@example.com")

	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/help/contact", contactBody()), &member)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ticketID := testutil.DecodeJSON(t, rec)["ticketId"].(string)
	assert.Regexp(t, `^CH-[0-9A-F]{8}$`, ticketID)

	last, ok := e.mail.Last()
	require.True(t, ok)
	assert.Equal(t, "support@camphub.test", last.To)
	assert.Equal(t, "pat@example.com", last.ReplyTo)
	assert.Contains(t, last.Subject, ticketID)

	rec = e.do(t, testutil.NewRequest(http.MethodGet, "/api/help/support-messages"), &member)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, testutil.DecodeJSON(t, rec)["total"])

	body := contactBody()
	body["email"] = "not-an-email"
	rec = e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/help/contact", body), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContact_RateLimited(t *testing.T) {
	e := setup(t, 2)
	for i := 0; i < 2; i++ {
		rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/help/contact", contactBody()), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := e.do(t, testutil.JSONRequest(t, http.MethodPost, "/api/help/contact", contactBody()), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
