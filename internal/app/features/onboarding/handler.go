// internal/app/features/onboarding/handler.go
package onboarding

import (
	"context"
	"errors"
	"net/http"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/campsetup"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/app/system/txn"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler lets a freshly registered user pick member or camp lead.
type Handler struct {
	Client *mongo.Client
	Users  *userstore.Store
	Camps  *campstore.Store
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Client: db.Client(),
		Users:  userstore.New(db),
		Camps:  campstore.New(db),
		Audit:  audit,
		Log:    logger,
	}
}

var errAlreadyOnboarded = respond.BadRequest("Role has already been selected")

type selectRoleRequest struct {
	Role     string `json:"role" validate:"required,oneof=member camp_lead" label:"Role"`
	CampName string `json:"campName" validate:"max=100" label:"Camp name"`
}

// SelectRole handles POST /api/onboarding/select-role.
//
// The role, the camp (for camp leads) and the link between them are written
// in one transaction; a failure leaves the account unassigned.
func (h *Handler) SelectRole(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	var req selectRoleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "select role")
		return
	}
	req.Role = normalize.Status(req.Role)
	req.CampName = normalize.Name(req.CampName)

	if authz.HasAnyRole(r, models.RoleMember, models.RoleCampLead) {
		respond.Err(w, h.Log, errAlreadyOnboarded, "select role")
		return
	}
	v := inputval.Validate(req)
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "select role: load user")
		return
	}
	if !u.NeedsOnboarding() {
		respond.Err(w, h.Log, errAlreadyOnboarded, "select role")
		return
	}

	accountType := models.AccountPersonal
	redirect := "/user/profile"
	if req.Role == models.RoleCampLead {
		accountType = models.AccountCamp
		redirect = "/camp/edit"
	}

	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context, tx *txn.Tx) error {
		if err := h.Users.SelectRole(ctx, u.ID, req.Role, accountType); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return errAlreadyOnboarded
			}
			return err
		}
		tx.OnRollback(func(ctx context.Context) error {
			return h.Users.Update(ctx, u.ID, bson.M{
				"role":         models.RoleUnassigned,
				"account_type": u.AccountType,
			})
		})
		if req.Role != models.RoleCampLead || u.CampID != nil {
			return nil
		}
		owner := *u
		owner.AccountType = accountType
		name := req.CampName
		if name == "" {
			name = u.CampName
		}
		_, err := campsetup.Provision(ctx, tx, h.Camps, h.Users, campsetup.Params{
			Owner:  owner,
			Name:   name,
			Public: false,
		})
		return err
	})
	if err != nil {
		respond.Err(w, h.Log, err, "select role")
		return
	}

	updated, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "select role: reload user", err)
		return
	}

	h.Audit.Member(ctx, u.ID, u.ID, models.ActivityRoleSelected, map[string]any{
		"role":         req.Role,
		"account_type": accountType,
	})
	h.Log.Info("role selected",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", req.Role))

	respond.OK(w, map[string]any{
		"message":    "Role selected successfully",
		"user":       updated,
		"redirectTo": redirect,
	})
}

// Status handles GET /api/onboarding/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "onboarding status")
		return
	}
	respond.OK(w, map[string]any{
		"needsOnboarding": u.NeedsOnboarding(),
		"currentRole":     u.Role,
		"accountType":     u.AccountType,
	})
}
