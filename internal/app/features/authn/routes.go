// internal/app/features/authn/routes.go
package authn

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/auth.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Post("/reset-password", h.ResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(mw.Authenticate)
		pr.Get("/me", h.Me)
		pr.Post("/logout", h.Logout)
		pr.Post("/refresh", h.Refresh)
		pr.Put("/change-password", h.ChangePassword)
	})
	return r
}
