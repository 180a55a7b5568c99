// internal/app/features/authgoogle/routes.go
package authgoogle

import "github.com/go-chi/chi/v5"

// Routes returns the router for Google OAuth endpoints, mounted at
// /api/oauth/google. These routes are public.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// GET /api/oauth/google - Initiate Google OAuth flow
	r.Get("/", h.ServeLogin)

	// GET /api/oauth/google/callback - Handle Google OAuth callback
	r.Get("/callback", h.ServeCallback)

	return r
}
