// internal/app/features/authn/handler.go
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	"github.com/dalemusser/camphub/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/campsetup"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/app/system/txn"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const forgotMessage = "If an account with that email exists, a password reset link has been sent."

type Handler struct {
	Client  *mongo.Client
	Users   *userstore.Store
	Camps   *campstore.Store
	Resets  *passwordreset.Store
	Tokens  *auth.TokenManager
	Mail    mailer.Sender
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Limiter *ratelimit.LoginLimiter
	BaseURL string // SPA base for reset links
	Log     *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	tokens *auth.TokenManager,
	mail mailer.Sender,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	limiter *ratelimit.LoginLimiter,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Client:  db.Client(),
		Users:   userstore.New(db),
		Camps:   campstore.New(db),
		Resets:  passwordreset.New(db, passwordreset.DefaultExpiry),
		Tokens:  tokens,
		Mail:    mail,
		Audit:   audit,
		Metrics: m,
		Limiter: limiter,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Log:     logger,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254" label:"Email"`
	Password    string `json:"password" validate:"required,min=6,max=72" label:"Password"`
	AccountType string `json:"accountType" validate:"required,oneof=personal camp" label:"Account type"`
	FirstName   string `json:"firstName" validate:"max=100" label:"First name"`
	LastName    string `json:"lastName" validate:"max=100" label:"Last name"`
	CampName    string `json:"campName" validate:"max=100" label:"Camp name"`
}

func (req *registerRequest) validate() *inputval.Result {
	req.Email = normalize.Email(req.Email)
	req.AccountType = normalize.Status(req.AccountType)
	req.FirstName = normalize.Name(req.FirstName)
	req.LastName = normalize.Name(req.LastName)
	req.CampName = normalize.Name(req.CampName)

	v := inputval.Validate(req)
	switch req.AccountType {
	case models.AccountPersonal:
		v.Required("firstName", "First name", req.FirstName)
		v.Required("lastName", "Last name", req.LastName)
	case models.AccountCamp:
		v.Required("campName", "Camp name", req.CampName)
	}
	return &v
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "register")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		respond.Message(w, http.StatusBadRequest, "Email already registered")
		return
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		respond.ServerError(w, h.Log, "register: email lookup", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.ServerError(w, h.Log, "register: hash password", err)
		return
	}

	var created models.User
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context, tx *txn.Tx) error {
		u, err := h.Users.Create(ctx, models.User{
			Email:        req.Email,
			PasswordHash: hash,
			AccountType:  req.AccountType,
			Role:         models.RoleUnassigned,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			CampName:     req.CampName,
			Preferences:  models.Preferences{EmailNotifications: true},
		})
		if err != nil {
			return err
		}
		tx.OnRollback(func(ctx context.Context) error {
			_, err := h.Users.DeleteByIDs(ctx, []primitive.ObjectID{u.ID})
			return err
		})
		if req.AccountType == models.AccountCamp {
			c, err := campsetup.Provision(ctx, tx, h.Camps, h.Users, campsetup.Params{Owner: u, Name: req.CampName, Public: true})
			if err != nil {
				return err
			}
			u.CampID, u.CampName, u.URLSlug = &c.ID, c.Name, c.Slug
		}
		created = u
		return nil
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		respond.Message(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "register", err, zap.String("account_type", req.AccountType))
		return
	}

	token, err := h.Tokens.Issue(created.ID.Hex())
	if err != nil {
		respond.ServerError(w, h.Log, "register: issue token", err)
		return
	}

	h.Metrics.Registered(created.AccountType)
	h.Audit.Registered(ctx, r, created.ID, created.AccountType, "password")
	h.sendMail(mailer.BuildWelcomeEmail(created.Email, mailer.WelcomeEmailData{
		Name:        created.FullName(),
		AccountType: created.AccountType,
		LoginURL:    h.BaseURL + "/login",
	}))

	respond.Created(w, map[string]any{
		"token":        token,
		"user":         created,
		"isNewAccount": true,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "login")
		return
	}
	req.Email = normalize.Email(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Message(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Email); !ok {
			respond.Message(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Audit.LoginFailure(ctx, r, nil, req.Email, "unknown email")
		respond.Message(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "login: lookup", err)
		return
	}
	if !u.IsActive {
		h.Audit.LoginFailure(ctx, r, &u.ID, req.Email, "deactivated")
		respond.Message(w, http.StatusUnauthorized, "Account deactivated")
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.Audit.LoginFailure(ctx, r, &u.ID, req.Email, "bad password")
		respond.Message(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	isFirstLogin := u.AccountType == models.AccountCamp && u.LastLogin == nil
	now := time.Now().UTC()
	if err := h.Users.TouchLogin(ctx, u.ID, now); err != nil {
		h.Log.Warn("login: touch last_login", zap.Error(err))
	}
	u.LastLogin = &now

	token, err := h.Tokens.Issue(u.ID.Hex())
	if err != nil {
		respond.ServerError(w, h.Log, "login: issue token", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, "password")

	respond.OK(w, map[string]any{
		"token":        token,
		"user":         u,
		"isFirstLogin": isFirstLogin,
	})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "me")
		return
	}
	respond.OK(w, map[string]any{"user": u})
}

// Logout handles POST /api/auth/logout. Tokens are stateless; the client
// discards its copy.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, http.StatusOK, "Logged out successfully")
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)
	token, err := h.Tokens.Issue(cu.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "refresh: issue token", err)
		return
	}
	respond.OK(w, map[string]any{"token": token})
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is
// the same whether or not the email is known.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email" label:"Email"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "forgot-password")
		return
	}
	req.Email = normalize.Email(req.Email)
	if v := inputval.Validate(req); v.HasErrors() {
		respond.Message(w, http.StatusBadRequest, v.First())
		return
	}
	email := req.Email

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.Log.Error("forgot-password: lookup", zap.Error(err))
		}
		respond.Message(w, http.StatusOK, forgotMessage)
		return
	}
	if u.IsActive {
		if err := h.sendReset(ctx, u); err != nil {
			h.Log.Error("forgot-password: create token", zap.Error(err))
		}
	}
	respond.Message(w, http.StatusOK, forgotMessage)
}

// sendReset issues a reset token for u and emails the link.
func (h *Handler) sendReset(ctx context.Context, u *models.User) error {
	token, err := h.Resets.Create(ctx, u.ID, u.Email)
	if err != nil {
		return err
	}
	h.sendMail(mailer.BuildPasswordResetEmail(u.Email, mailer.PasswordResetEmailData{
		ResetURL:  h.BaseURL + "/reset-password?token=" + token,
		ExpiresIn: formatExpiry(h.Resets.Expiry()),
	}))
	return nil
}

type resetRequest struct {
	Token    string `json:"token" validate:"required,max=200" label:"Reset token"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "reset-password")
		return
	}
	if v := inputval.Validate(req); v.HasErrors() {
		respond.Message(w, http.StatusBadRequest, v.First())
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		respond.Message(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "reset-password: hash", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rs, err := h.Resets.Consume(ctx, strings.TrimSpace(req.Token))
	if errors.Is(err, passwordreset.ErrNotFound) {
		respond.Message(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "reset-password: consume", err)
		return
	}
	if err := h.Users.SetPassword(ctx, rs.UserID, hash); err != nil {
		respond.Err(w, h.Log, err, "reset-password: set")
		return
	}
	h.Audit.PasswordReset(ctx, rs.UserID)
	respond.Message(w, http.StatusOK, "Password has been reset. You can now sign in.")
}

type changeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles PUT /api/auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "change-password")
		return
	}
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "change-password: load")
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		respond.Message(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		respond.Message(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "change-password: hash", err)
		return
	}
	if err := h.Users.SetPassword(ctx, u.ID, hash); err != nil {
		respond.Err(w, h.Log, err, "change-password: set")
		return
	}
	h.Audit.PasswordChanged(ctx, u.ID)
	respond.Message(w, http.StatusOK, "Password changed successfully")
}

// sendMail hands e to the mailer. Delivery problems are logged, never
// returned to the client.
func (h *Handler) sendMail(e mailer.Email) {
	mailer.Deliver(h.Mail, h.Log, e)
}

// formatExpiry renders d as "45 minutes" or "1 hour".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
