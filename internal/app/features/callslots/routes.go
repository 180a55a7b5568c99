// internal/app/features/callslots/routes.go
package callslots

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/call-slots. Every route requires a signed-in
// user; everything but the available list is for the camp's managers.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)

	r.Get("/available/{campId}", h.Available)
	r.Get("/camp/{campId}", h.ForCamp)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/details", h.Details)
	return r
}
