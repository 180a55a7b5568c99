// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/camphub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie = "camphub_oauth_state"
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth sign-in for the SPA. A successful callback
// ends with a redirect carrying a bearer token in the URL fragment.
type Handler struct {
	Users      *userstore.Store
	StateStore *oauthstate.Store
	Tokens     *auth.TokenManager
	Audit      *auditlog.Logger
	Metrics    *metrics.Metrics
	Cookie     *securecookie.SecureCookie
	Log        *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.camphub.org/api/oauth/google/callback"
	ClientURL    string // SPA origin

	// fetchUser exchanges the code and loads the Google profile.
	// Tests replace it to avoid calling Google.
	fetchUser func(ctx context.Context, code string) (*googleUserInfo, error)
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	db *mongo.Database,
	tokens *auth.TokenManager,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	cookieKey []byte,
	clientID, clientSecret, apiBaseURL, clientURL string,
	logger *zap.Logger,
) *Handler {
	sc := securecookie.New(cookieKey, nil)
	sc.MaxAge(int(oauthstate.DefaultTTL / time.Second))

	h := &Handler{
		Users:        userstore.New(db),
		StateStore:   oauthstate.New(db),
		Tokens:       tokens,
		Audit:        audit,
		Metrics:      m,
		Cookie:       sc,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(apiBaseURL, "/") + "/api/oauth/google/callback",
		ClientURL:    strings.TrimRight(clientURL, "/"),
	}
	h.fetchUser = h.exchangeAndFetch
	return h
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/oauth/google                                                        |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectToLogin(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(oauthstate.DefaultTTL)
	if err := h.StateStore.Save(ctx, state, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	// Bind the state to this browser as well as the database.
	encoded, err := h.Cookie.Encode(stateCookie, state)
	if err != nil {
		h.Log.Error("failed to encode OAuth state cookie", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    encoded,
		Path:     "/api/oauth/google",
		MaxAge:   int(oauthstate.DefaultTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	dest := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/oauth/google/callback                                               |
| Validates state, exchanges the code, finds or creates the user and hands     |
| the SPA a bearer token.                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		h.redirectToLogin(w, r, "google_denied")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || !h.stateMatchesCookie(r, state) {
		h.Log.Warn("missing or mismatched OAuth state")
		h.redirectToLogin(w, r, "invalid_state")
		return
	}
	h.clearStateCookie(w)

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	_, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToLogin(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.redirectToLogin(w, r, "invalid_code")
		return
	}

	googleUser, err := h.fetchUser(ctx, code)
	if err != nil {
		h.Log.Error("failed to fetch Google user", zap.Error(err))
		h.redirectToLogin(w, r, "user_info")
		return
	}
	if googleUser.Email == "" {
		h.redirectToLogin(w, r, "user_info")
		return
	}

	u, isNew, err := h.resolveUser(ctxTimeout, googleUser)
	if errors.Is(err, errUserDisabled) {
		h.Audit.LoginFailure(ctxTimeout, r, &u.ID, u.Email, "account deactivated")
		h.redirectToLogin(w, r, "account_disabled")
		return
	}
	if err != nil {
		h.Log.Error("failed to resolve Google user", zap.Error(err), zap.String("email", googleUser.Email))
		h.redirectToLogin(w, r, "internal")
		return
	}

	token, err := h.Tokens.Issue(u.ID.Hex())
	if err != nil {
		h.Log.Error("failed to issue token", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	if err := h.Users.TouchLogin(ctxTimeout, u.ID, time.Now().UTC()); err != nil {
		h.Log.Warn("failed to record last login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if isNew {
		h.Metrics.Registered(u.AccountType)
		h.Audit.Registered(ctxTimeout, r, u.ID, u.AccountType, "google")
	}
	h.Audit.LoginSuccess(ctxTimeout, r, u.ID, "google")

	h.Log.Info("user signed in via Google OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("new_user", isNew))

	frag := url.Values{}
	frag.Set("token", token)
	frag.Set("isNewUser", fmt.Sprintf("%t", isNew))
	http.Redirect(w, r, h.ClientURL+"/auth/callback#"+frag.Encode(), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var errUserDisabled = errors.New("user disabled")

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (h *Handler) exchangeAndFetch(ctx context.Context, code string) (*googleUserInfo, error) {
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return fetchGoogleUserInfo(ctx, token)
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// resolveUser finds the account for a Google profile:
//  1. by google_id (already linked);
//  2. by email, linking google_id on first use;
//  3. otherwise a new personal account that still has to onboard.
//
// The returned user is valid alongside errUserDisabled so the caller can
// audit the attempt.
func (h *Handler) resolveUser(ctx context.Context, g *googleUserInfo) (models.User, bool, error) {
	u, err := h.Users.GetByGoogleID(ctx, g.ID)
	if err == nil {
		if !u.IsActive {
			return *u, false, errUserDisabled
		}
		return *u, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, false, err
	}

	u, err = h.Users.GetByEmail(ctx, g.Email)
	if err == nil {
		if !u.IsActive {
			return *u, false, errUserDisabled
		}
		set := bson.M{"google_id": g.ID, "is_verified": true}
		if u.ProfilePhoto == "" && g.Picture != "" {
			set["profile_photo"] = g.Picture
		}
		linked, err := h.Users.UpdateAndGet(ctx, u.ID, set)
		if err != nil {
			return models.User{}, false, err
		}
		return *linked, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, false, err
	}

	first, last := g.GivenName, g.FamilyName
	if first == "" && last == "" {
		first, last, _ = strings.Cut(g.Name, " ")
	}
	created, err := h.Users.Create(ctx, models.User{
		Email:        g.Email,
		GoogleID:     g.ID,
		AccountType:  models.AccountPersonal,
		Role:         models.RoleUnassigned,
		FirstName:    first,
		LastName:     last,
		ProfilePhoto: g.Picture,
		IsVerified:   true,
		Preferences:  models.Preferences{EmailNotifications: true},
	})
	if err != nil {
		return models.User{}, false, err
	}
	return created, true, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) stateMatchesCookie(r *http.Request, state string) bool {
	c, err := r.Cookie(stateCookie)
	if err != nil {
		return false
	}
	var stored string
	if err := h.Cookie.Decode(stateCookie, c.Value, &stored); err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			h.Log.Warn("OAuth state cookie invalid", zap.Error(err))
		}
		return false
	}
	return stored == state
}

func (h *Handler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/api/oauth/google",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// redirectToLogin sends the browser back to the SPA login page.
func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request, errorCode string) {
	http.Redirect(w, r, h.ClientURL+"/login?error="+url.QueryEscape(errorCode), http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
