package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID          string
	Name        string
	Email       string
	Role        string
	AccountType string
	CampID      string
}

// AdminUser returns a TestUser with an admin account.
func AdminUser() TestUser {
	return TestUser{
		ID:          primitive.NewObjectID().Hex(),
		Name:        "Test Admin",
		Email:       "admin@test.com",
		Role:        models.RoleMember,
		AccountType: models.AccountAdmin,
	}
}

// PersonalUser returns a TestUser with a personal account.
func PersonalUser() TestUser {
	return TestUser{
		ID:          primitive.NewObjectID().Hex(),
		Name:        "Test Burner",
		Email:       "burner@test.com",
		Role:        models.RoleMember,
		AccountType: models.AccountPersonal,
	}
}

// CampUser returns a TestUser with a camp account linked to campID.
func CampUser(campID primitive.ObjectID) TestUser {
	return TestUser{
		ID:          primitive.NewObjectID().Hex(),
		Name:        "Test Camp",
		Email:       "camp@test.com",
		Role:        models.RoleCampLead,
		AccountType: models.AccountCamp,
		CampID:      campID.Hex(),
	}
}

// FromModel converts a stored user into a TestUser.
func FromModel(u models.User) TestUser {
	tu := TestUser{
		ID:          u.ID.Hex(),
		Name:        u.DisplayName(),
		Email:       u.Email,
		Role:        u.Role,
		AccountType: u.AccountType,
	}
	if u.CampID != nil {
		tu.CampID = u.CampID.Hex()
	}
	return tu
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the token middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.User{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		AccountType: user.AccountType,
		CampID:      user.CampID,
	})
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// JSONRequest creates a request whose body is body encoded as JSON.
func JSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	r := httptest.NewRequest(method, target, rdr)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// DecodeJSON decodes a recorded response body into a generic map.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

// DecodeInto decodes a recorded response body into v.
func DecodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
