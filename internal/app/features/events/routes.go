// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/shifts. Every route requires a signed-in user;
// handlers check camp access.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)

	r.Get("/events", h.List)
	r.Post("/events", h.Create)
	r.Get("/my-events", h.Mine)
	r.Get("/events/{eventId}", h.Get)
	r.Put("/events/{eventId}", h.Update)
	r.Delete("/events/{eventId}", h.Delete)
	r.Post("/events/{eventId}/send-task", h.SendTasks)
	r.Delete("/events/{eventId}/tasks", h.DeleteTasks)
	r.Put("/events/{eventId}/task-assignments", h.SyncTasks)
	r.Post("/shifts/{shiftId}/signup", h.SignUp)
	r.Delete("/shifts/{shiftId}/signup", h.CancelSignUp)
	r.Get("/reports/per-person", h.PerPerson)
	r.Get("/reports/per-day", h.PerDay)
	return r
}
