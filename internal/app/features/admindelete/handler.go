// internal/app/features/admindelete/handler.go
//
// Package admindelete permanently removes an account and everything that
// references it. It is admin-only and requires an explicit confirmation
// phrase in the request body.
package admindelete

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/maintenance"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Confirmation must be sent as {"confirm": ...} to delete.
const Confirmation = "DELETE_PERMANENTLY"

type Handler struct {
	Maint *maintenance.Service
	Log   *zap.Logger
}

func NewHandler(maint *maintenance.Service, logger *zap.Logger) *Handler {
	return &Handler{Maint: maint, Log: logger}
}

// DeleteAccount handles DELETE /api/admin-delete/account/{idOrEmail}.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(chi.URLParam(r, "idOrEmail"))
	if term == "" {
		respond.Message(w, http.StatusBadRequest, "User ID or email is required")
		return
	}
	var in struct {
		Confirm string `json:"confirm"`
	}
	if err := respond.DecodeLenient(r, &in); err != nil || in.Confirm != Confirmation {
		respond.Fields(w, http.StatusBadRequest, "Confirmation required", map[string]any{
			"requiredConfirmation": Confirmation,
		})
		return
	}
	_, adminID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	sum, err := h.Maint.DeleteAccount(ctx, term, &adminID)
	if errors.Is(err, maintenance.ErrAccountNotFound) {
		respond.Message(w, http.StatusNotFound, "No user or camp found for "+term)
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "admin delete account", err, zap.String("search_term", term))
		return
	}
	respond.OK(w, map[string]any{
		"success":         true,
		"message":         "Account permanently deleted",
		"deletionSummary": sum,
	})
}

// Routes mounts under /api/admin-delete.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate, auth.RequireAdmin)
	r.Delete("/account/{idOrEmail}", h.DeleteAccount)
	return r
}
