// internal/app/features/workspaces/members.go
package workspaces

import (
	"encoding/json"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	membershipstore "github.com/dalemusser/onepager/internal/app/store/memberships"
	workspacestore "github.com/dalemusser/onepager/internal/app/store/workspaces"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type roleRequest struct {
	Role string `json:"role"`
}

// HandleUpdateRole handles PATCH /api/workspaces/{workspaceID}/members/{userID}.
//
//	{ "role": "admin" }
//
// Only owners may grant or take away ownership, and nobody changes their
// own role.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot manage members")
		return
	}
	target, ok := targetUser(w, r)
	if !ok {
		return
	}
	if target == a.UserOID {
		uierrors.Forbidden(w, "you cannot change your own role")
		return
	}

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !models.ValidRole(req.Role) {
		uierrors.BadRequest(w, "role must be owner, admin, agent or viewer")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	current, err := h.Members.Get(ctx, a.WorkspaceID, target)
	if err != nil {
		h.memberError(w, r, "member lookup failed", err)
		return
	}
	if (current.Role == models.RoleOwner || req.Role == models.RoleOwner) && a.Role != models.RoleOwner {
		uierrors.Forbidden(w, "only an owner can change ownership")
		return
	}

	if err := h.Members.UpdateRole(ctx, a.WorkspaceID, target, req.Role); err != nil {
		h.memberError(w, r, "role update failed", err)
		return
	}

	h.Sessions.Invalidate(target.Hex(), session.ScopeWorkspace)
	h.Audit.MemberRoleChanged(r, a.WorkspaceID, a.UserOID, target, current.Role, req.Role)
	h.Log.Info("member role changed",
		zap.String("workspace_id", a.WorkspaceID.Hex()),
		zap.String("user_id", target.Hex()),
		zap.String("role", req.Role))
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /api/workspaces/{workspaceID}/members/{userID}.
// Managers may remove others; anyone but an owner may remove themselves.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	target, ok := targetUser(w, r)
	if !ok {
		return
	}
	self := target == a.UserOID
	if !self && !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot manage members")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	current, err := h.Members.Get(ctx, a.WorkspaceID, target)
	if err != nil {
		h.memberError(w, r, "member lookup failed", err)
		return
	}
	if current.Role == models.RoleOwner {
		uierrors.Conflict(w, "an owner cannot be removed; transfer ownership first")
		return
	}

	if err := h.Members.Remove(ctx, a.WorkspaceID, target); err != nil {
		h.memberError(w, r, "member remove failed", err)
		return
	}

	h.Sessions.Invalidate(target.Hex(), session.ScopeWorkspace)
	h.Audit.MemberRemoved(r, a.WorkspaceID, a.UserOID, target, current.Role)
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteWorkspace handles DELETE /api/workspaces/{workspaceID}. The
// workspace is soft-deleted and every cached member session re-resolves.
func (h *Handler) HandleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if a.Role != models.RoleOwner {
		uierrors.Forbidden(w, "only an owner can delete the workspace")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if err := h.Workspaces.SoftDelete(ctx, a.WorkspaceID); err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			uierrors.NotFound(w, "workspace not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "workspace delete failed", err)
		return
	}

	n := h.Sessions.InvalidateWorkspace(a.WorkspaceID.Hex(), session.ScopeWorkspace)
	h.Audit.WorkspaceDeleted(r, a.WorkspaceID, a.UserOID)
	h.Log.Info("workspace deleted",
		zap.String("workspace_id", a.WorkspaceID.Hex()),
		zap.String("user_id", a.UserID),
		zap.Int("sessions_invalidated", n))
	w.WriteHeader(http.StatusNoContent)
}

func targetUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		uierrors.NotFound(w, "member not found")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) memberError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, membershipstore.ErrNotFound):
		uierrors.NotFound(w, "member not found")
	case errors.Is(err, membershipstore.ErrBadRole):
		uierrors.BadRequest(w, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}
