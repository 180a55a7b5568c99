// internal/app/features/applications/routes.go
package applications

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/applications. Every route needs a signed-in user.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)

	r.Post("/apply", h.Apply)
	r.Get("/check/{campId}", h.Check)
	r.Get("/my-applications", h.MyApplications)
	r.Get("/camp/{campId}", h.CampApplications)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/message", h.PostMessage)
	r.With(auth.RequireAdmin).Patch("/reset/{applicantId}/{campId}", h.Reset)
	return r
}
