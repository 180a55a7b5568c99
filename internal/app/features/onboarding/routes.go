// internal/app/features/onboarding/routes.go
package onboarding

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/onboarding; every route needs a signed-in user.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Post("/select-role", h.SelectRole)
	r.Get("/status", h.Status)
	return r
}
