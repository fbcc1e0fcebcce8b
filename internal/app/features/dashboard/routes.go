// internal/app/features/dashboard/routes.go
package dashboard

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /api/session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSession)
	r.Get("/profile", h.ServeProfile)
	r.Get("/workspace", h.ServeWorkspace)
	r.Post("/workspace", h.HandleSwitchWorkspace)
	r.With(h.refreshLimit).Post("/refresh", h.HandleRefresh)
	r.Post("/invalidate", h.HandleInvalidate)
	return r
}
