// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Account types mirrored from the user model so middleware callers need
// not import models.
const (
	AccountPersonal = "personal"
	AccountCamp     = "camp"
	AccountAdmin    = "admin"
)

// User is the authenticated caller injected into r.Context().
type User struct {
	ID          string
	Email       string
	Name        string
	Role        string
	AccountType string
	CampID      string
}

// ObjectID returns the user's id. NilObjectID when malformed.
func (u *User) ObjectID() primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(u.ID)
	return oid
}

// CampObjectID returns the linked camp, if any.
func (u *User) CampObjectID() (primitive.ObjectID, bool) {
	if u.CampID == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(u.CampID)
	return oid, err == nil
}

// IsAdmin reports whether the user has an admin account.
func (u *User) IsAdmin() bool { return u.AccountType == AccountAdmin }

// UserFetcher loads the current state of a user on every request so
// deactivation and role changes take effect immediately. It returns nil
// for unknown or inactive users.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *User
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*User, bool) {
	return FromContext(r.Context())
}

// FromContext returns the user stored by the middleware.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(currentUserKey).(*User)
	return u, ok && u != nil
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// WithTestUser injects u into r. Intended for tests.
func WithTestUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(WithUser(r.Context(), u))
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Middleware authenticates requests with bearer tokens.
type Middleware struct {
	tokens  *TokenManager
	fetcher UserFetcher
	log     *zap.Logger
}

// NewMiddleware wires token verification to a user fetcher.
func NewMiddleware(tokens *TokenManager, fetcher UserFetcher, log *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, fetcher: fetcher, log: log}
}

// Tokens exposes the token manager to handlers that issue tokens.
func (m *Middleware) Tokens() *TokenManager { return m.tokens }

// Resolve verifies raw and loads its user.
//
//	status 401: missing token or unknown/inactive user
//	status 403: invalid or expired token
func (m *Middleware) Resolve(ctx context.Context, raw string) (*User, *respond.Error) {
	if raw == "" {
		return nil, respond.Status(http.StatusUnauthorized, "Access token required")
	}
	userID, err := m.tokens.Parse(raw)
	if err != nil {
		return nil, respond.Status(http.StatusForbidden, "Invalid or expired token")
	}
	u := m.fetcher.FetchUser(ctx, userID)
	if u == nil {
		return nil, respond.Status(http.StatusUnauthorized, "User not found or account deactivated")
	}
	return u, nil
}

// Authenticate requires a valid bearer token.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, herr := m.Resolve(r.Context(), BearerToken(r))
		if herr != nil {
			respond.Message(w, herr.Status, herr.Message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Optional loads the user when a valid token is present and otherwise
// continues anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := BearerToken(r); raw != "" {
			if u, herr := m.Resolve(r.Context(), raw); herr == nil {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only admin accounts. Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			respond.Message(w, http.StatusUnauthorized, "Access token required")
			return
		}
		if !u.IsAdmin() {
			respond.Message(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccountType allows only the listed account types. Admins always pass.
func RequireAccountType(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Message(w, http.StatusUnauthorized, "Access token required")
				return
			}
			if _, has := set[u.AccountType]; !has && !u.IsAdmin() {
				respond.Message(w, http.StatusForbidden, "Access denied for this account type")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
