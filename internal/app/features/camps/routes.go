// internal/app/features/camps/routes.go
package camps

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/camps. Detail routes use optional auth so owners
// and admins can preview hidden camps.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(mw.Optional)
		pr.Get("/", h.List)
		pr.Get("/public/{slug}", h.GetBySlug)
		pr.Get("/{id}", h.GetByID)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(mw.Authenticate)
		pr.Get("/{id}/members", h.ListMembers)
		pr.With(auth.RequireAdmin).Delete("/{id}", h.Archive)

		pr.Group(func(cr chi.Router) {
			cr.Use(auth.RequireAccountType(models.AccountCamp))
			cr.Get("/my-camp", h.GetMyCamp)
			cr.Put("/my-camp", h.UpdateMyCamp)
			cr.Put("/my-camp/public", h.SetPublic)
		})
	})
	return r
}
