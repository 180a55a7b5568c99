// internal/app/features/diagnostic/handler.go
package diagnostic

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/maintenance"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Maint *maintenance.Service
	Log   *zap.Logger
}

func NewHandler(maint *maintenance.Service, logger *zap.Logger) *Handler {
	return &Handler{Maint: maint, Log: logger}
}

// Account handles GET /api/diagnostic/account/{idOrEmail}. It reports
// ownership and linkage problems without changing anything.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(chi.URLParam(r, "idOrEmail"))
	if term == "" {
		respond.Message(w, http.StatusBadRequest, "User ID or email is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rep, err := h.Maint.Diagnose(ctx, term)
	if err != nil {
		respond.ServerError(w, h.Log, "diagnose account", err, zap.String("search_term", term))
		return
	}
	respond.OK(w, rep)
}

// Routes mounts under /api/diagnostic.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate, auth.RequireAdmin)
	r.Get("/account/{idOrEmail}", h.Account)
	return r
}
