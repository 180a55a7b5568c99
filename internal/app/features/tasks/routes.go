// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/tasks. Every route requires a signed-in user;
// handlers check camp access.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/my-tasks", h.Mine)
	r.Get("/camp/{campId}", h.ForCamp)
	r.Get("/assigned/{userId}", h.Assigned)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/assign", h.Assign)
	return r
}
