// internal/app/features/workspaces/routes.go
package workspaces

import (
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /api/workspaces.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/{workspaceID}", func(r chi.Router) {
		r.Use(h.requireMember)
		r.Delete("/", h.HandleDeleteWorkspace)

		r.Get("/sites", h.ServeSites)
		r.With(h.refreshLimit).Post("/sites/refresh", h.HandleRefreshSites)
		r.Delete("/sites/{siteID}", h.HandleArchiveSite)

		r.Get("/invitations", h.ServeInvitations)
		r.Post("/invitations", h.HandleCreateInvitation)
		r.With(h.refreshLimit).Post("/invitations/refresh", h.HandleRefreshInvitations)
		r.Delete("/invitations/{invitationID}", h.HandleRevokeInvitation)

		r.Patch("/members/{userID}", h.HandleUpdateRole)
		r.Delete("/members/{userID}", h.HandleRemoveMember)

		r.Get("/audit", h.ServeAudit)
	})
	return r
}

// CurrentRoutes returns a subrouter mounted under /api/current that serves
// the lists of the caller's current workspace. It must run behind
// workspace.Middleware.
func CurrentRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(workspace.RequireWorkspace)
	r.Use(h.currentMember)
	r.Get("/sites", h.ServeSites)
	r.Get("/invitations", h.ServeInvitations)
	return r
}
