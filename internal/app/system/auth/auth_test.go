package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long!"

type fakeFetcher map[string]*auth.User

func (f fakeFetcher) FetchUser(_ context.Context, id string) *auth.User { return f[id] }

func newTokens(t *testing.T, expiry time.Duration) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, expiry, zap.NewNop())
	require.NoError(t, err)
	return tm
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	_, err := auth.NewTokenManager("", time.Hour, zap.NewNop())
	assert.Error(t, err)
}

func TestToken_RoundTrip(t *testing.T) {
	tm := newTokens(t, time.Hour)
	id := primitive.NewObjectID().Hex()

	tok, err := tm.Issue(id)
	require.NoError(t, err)

	got, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestToken_Expired(t *testing.T) {
	tm := newTokens(t, time.Nanosecond)
	tok, err := tm.Issue("abc")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = tm.Parse(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestToken_RejectsOtherSecretAndAlg(t *testing.T) {
	tm := newTokens(t, time.Hour)

	other, err := auth.NewTokenManager("another-secret-that-is-32-chars-long!", time.Hour, zap.NewNop())
	require.NoError(t, err)
	forged, err := other.Issue("abc")
	require.NoError(t, err)
	_, err = tm.Parse(forged)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: "abc"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Parse(raw)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	tm := newTokens(t, time.Hour)
	active := &auth.User{ID: primitive.NewObjectID().Hex(), AccountType: auth.AccountPersonal}
	inactiveID := primitive.NewObjectID().Hex()
	mw := auth.NewMiddleware(tm, fakeFetcher{active.ID: active}, zap.NewNop())

	okTok, _ := tm.Issue(active.ID)
	goneTok, _ := tm.Issue(inactiveID)

	var seen *auth.User
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantMsg  string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"garbage", "Bearer not.a.token", http.StatusForbidden, "Invalid or expired token"},
		{"unknown user", "Bearer " + goneTok, http.StatusUnauthorized, "User not found or account deactivated"},
		{"ok", "Bearer " + okTok, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + okTok, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, rec.Body.String(), tt.wantMsg)
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, active.ID, seen.ID)
			}
		})
	}
}

func TestOptional_ContinuesAnonymously(t *testing.T) {
	tm := newTokens(t, time.Hour)
	mw := auth.NewMiddleware(tm, fakeFetcher{}, zap.NewNop())

	called := false
	h := mw.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := auth.CurrentUser(r)
		assert.False(t, ok)
		called = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/camps/public/x", nil)
	req.Header.Set("Authorization", "Bearer junk")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestRequireAdmin(t *testing.T) {
	h := auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		user *auth.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"camp", &auth.User{ID: "1", AccountType: auth.AccountCamp}, http.StatusForbidden},
		{"admin", &auth.User{ID: "1", AccountType: auth.AccountAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
			if tt.user != nil {
				req = auth.WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireAccountType(t *testing.T) {
	h := auth.RequireAccountType(auth.AccountPersonal)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for acct, want := range map[string]int{
		auth.AccountPersonal: http.StatusNoContent,
		auth.AccountCamp:     http.StatusForbidden,
		auth.AccountAdmin:    http.StatusNoContent,
	} {
		req := auth.WithTestUser(httptest.NewRequest(http.MethodPost, "/api/applications/apply", nil), &auth.User{ID: "1", AccountType: acct})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, acct)
	}
}
