// internal/app/features/help/routes.go
package help

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/help.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Get("/faqs", h.ListFAQs)
	r.With(mw.Optional).Post("/contact", h.Contact)
	r.With(mw.Authenticate).Get("/support-messages", h.SupportMessages)
	return r
}

// AdminRoutes mounts under /api/admin/faqs.
func AdminRoutes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate, auth.RequireAdmin)
	r.Get("/", h.AdminListFAQs)
	r.Post("/", h.CreateFAQ)
	r.Put("/{id}", h.UpdateFAQ)
	r.Delete("/{id}", h.DeleteFAQ)
	return r
}
