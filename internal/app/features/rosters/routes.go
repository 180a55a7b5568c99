// internal/app/features/rosters/routes.go
package rosters

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/rosters. Management routes need a camp account
// (admins pass); the per-camp view is open to the camp's members.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)

	r.Get("/camp/{campId}", h.ForCamp)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAccountType(models.AccountCamp))

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/active", h.Active)
		r.Delete("/members/{memberId}", h.RemoveMember)

		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Rename)
		r.Put("/{id}/archive", h.Archive)
		r.Get("/{id}/export", h.Export)

		r.Post("/{id}/members", h.AddMember)
		r.Put("/{id}/members/{memberId}/dues", h.SetDues)
		r.Put("/{id}/members/{memberId}/overrides", h.SetOverrides)
	})
	return r
}
