// internal/app/features/upload/routes.go
package upload

import (
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/upload.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Post("/camp-photos", h.CampPhotos)
	r.Post("/camp-photo/{campId}", h.CampPhoto)
	r.Delete("/photo/{publicId}", h.DeletePhoto)
	r.Post("/profile-photo", h.ProfilePhoto)
	return r
}
