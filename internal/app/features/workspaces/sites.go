// internal/app/features/workspaces/sites.go
package workspaces

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	sitestore "github.com/dalemusser/onepager/internal/app/store/sites"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeSites handles GET /api/workspaces/{workspaceID}/sites.
func (h *Handler) ServeSites(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if nowait(r) {
		uierrors.JSON(w, http.StatusOK, h.Sessions.PeekSites(r.Context(), a.WorkspaceID.Hex()))
		return
	}
	uierrors.JSON(w, http.StatusOK, h.Sessions.Sites(r.Context(), a.WorkspaceID.Hex()))
}

// HandleRefreshSites handles POST /api/workspaces/{workspaceID}/sites/refresh.
func (h *Handler) HandleRefreshSites(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	uierrors.JSON(w, http.StatusOK, h.Sessions.RefreshSites(r.Context(), a.WorkspaceID.Hex()))
}

// HandleArchiveSite handles DELETE /api/workspaces/{workspaceID}/sites/{siteID}.
func (h *Handler) HandleArchiveSite(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanEditSites(a.Role) {
		uierrors.Forbidden(w, "your role cannot change sites")
		return
	}
	siteID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "siteID"))
	if err != nil {
		uierrors.NotFound(w, "site not found")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if err := h.Sites.Archive(ctx, a.WorkspaceID, siteID); err != nil {
		if errors.Is(err, sitestore.ErrNotFound) {
			uierrors.NotFound(w, "site not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "site archive failed", err, zap.String("site_id", siteID.Hex()))
		return
	}

	h.Sessions.InvalidateSites(a.WorkspaceID.Hex())
	h.Audit.SiteArchived(r, a.WorkspaceID, a.UserOID, siteID)
	w.WriteHeader(http.StatusNoContent)
}
