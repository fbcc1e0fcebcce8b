// internal/app/features/dashboard/session.go
package dashboard

import (
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeSession handles GET /api/session.
//
//	{ "session": { "profile":…, "workspace":…, "membership":…, "workspaces":[…] }, "loading": false }
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	uierrors.JSON(w, http.StatusOK, h.view(r, u.ID))
}

// ServeProfile handles GET /api/session/profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	uierrors.JSON(w, http.StatusOK, session.ProfileFrom(h.view(r, u.ID), u.Email))
}

// ServeWorkspace handles GET /api/session/workspace.
func (h *Handler) ServeWorkspace(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	uierrors.JSON(w, http.StatusOK, h.Sessions.WorkspaceFrom(r.Context(), h.view(r, u.ID)))
}

// HandleRefresh handles POST /api/session/refresh. It reloads every scope
// and returns the new session.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	uierrors.JSON(w, http.StatusOK, h.Sessions.RefreshSession(r.Context(), u.ID))
}

// HandleInvalidate handles POST /api/session/invalidate?scope=all|profile|workspace.
// The next read reloads the named scope.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	scope, err := session.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}
	h.Sessions.Invalidate(u.ID, scope)
	w.WriteHeader(http.StatusNoContent)
}

type switchRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// HandleSwitchWorkspace handles POST /api/session/workspace.
//
//	{ "workspace_id": "…" }
//
// The caller must be a member of the workspace. On success the preference
// is updated and the new current workspace is returned.
func (h *Handler) HandleSwitchWorkspace(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		uierrors.Unauthorized(w)
		return
	}

	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkspaceID == "" {
		uierrors.BadRequest(w, "workspace_id is required")
		return
	}
	if _, err := primitive.ObjectIDFromHex(req.WorkspaceID); err != nil {
		uierrors.BadRequest(w, "workspace_id is not a valid id")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	// Resolve without a preference store: a failed switch must leave the
	// stored preference alone.
	res, err := h.Resolver.Resolve(ctx, uid, req.WorkspaceID, nil)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "workspace switch failed", err)
		return
	}
	if res == nil || res.Workspace.ID.Hex() != req.WorkspaceID {
		uierrors.NotFound(w, "workspace not found")
		return
	}

	preference.FromContext(r.Context()).SetPreferredWorkspace(req.WorkspaceID)
	h.Audit.WorkspaceSwitched(r, res.Workspace.ID, uid)
	h.Log.Info("workspace switched",
		zap.String("user_id", u.ID),
		zap.String("workspace_id", req.WorkspaceID))

	uierrors.JSON(w, http.StatusOK, h.Sessions.WorkspaceFrom(r.Context(), h.Sessions.RefreshSession(r.Context(), u.ID)))
}
