// internal/app/features/invites/routes.go
package invites

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/invites.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/validate/{token}", h.Validate)
	r.With(mw.Authenticate).Post("/", h.Send)
	return r
}

// CampRoutes mounts under /api/camps/{campId}/invites.
func CampRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Get("/", h.List)
	r.Get("/template", h.GetTemplate)
	r.Put("/template", h.UpdateTemplate)
	return r
}
