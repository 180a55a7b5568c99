// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/users.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/public/{id}", h.GetPublic)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.Authenticate)
		pr.Get("/profile", h.GetProfile)
		pr.Put("/profile", h.UpdateProfile)
		pr.Put("/preferences", h.UpdatePreferences)
		pr.Delete("/account", h.DeleteAccount)
		pr.With(auth.RequireAccountType(models.AccountCamp, models.AccountAdmin)).Get("/search", h.Search)
	})
	return r
}
