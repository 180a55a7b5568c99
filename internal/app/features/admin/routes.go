// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/admin. Every route requires an admin account.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate, auth.RequireAdmin)

	r.Get("/dashboard", h.Dashboard)

	r.Get("/users", h.ListUsers)
	r.Put("/users/{id}", h.UpdateUser)
	r.Put("/users/{id}/status", h.SetUserStatus)
	r.Get("/users/{id}/history", h.UserHistory)

	r.Get("/camps", h.ListCamps)
	r.Put("/camps/{id}/status", h.SetCampStatus)
	r.Get("/camps/{id}/history", h.CampHistory)

	r.Get("/audit-logs", h.AuditLogs)
	r.Post("/restore-camp-admin/{campId}", h.RestoreCampAdmin)
	return r
}
