// internal/app/features/workspaces/invitations.go
package workspaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	invitationstore "github.com/dalemusser/onepager/internal/app/store/invitations"
	"github.com/dalemusser/onepager/internal/app/system/htmlsanitize"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxMessageLen = 2000

// ServeInvitations handles GET /api/workspaces/{workspaceID}/invitations.
func (h *Handler) ServeInvitations(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot view invitations")
		return
	}
	if nowait(r) {
		uierrors.JSON(w, http.StatusOK, h.Sessions.PeekInvitations(r.Context(), a.WorkspaceID.Hex()))
		return
	}
	uierrors.JSON(w, http.StatusOK, h.Sessions.Invitations(r.Context(), a.WorkspaceID.Hex(), nil))
}

// HandleRefreshInvitations handles POST /api/workspaces/{workspaceID}/invitations/refresh.
func (h *Handler) HandleRefreshInvitations(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot view invitations")
		return
	}
	uierrors.JSON(w, http.StatusOK, h.Sessions.RefreshInvitations(r.Context(), a.WorkspaceID.Hex()))
}

type inviteRequest struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// HandleCreateInvitation handles POST /api/workspaces/{workspaceID}/invitations.
//
//	{ "email": "…", "role": "agent", "message": "…" }
//
// Members plus pending invitations may not exceed the plan's user limit.
func (h *Handler) HandleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot invite members")
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body")
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		uierrors.BadRequest(w, "email is not a valid address")
		return
	}
	if !models.ValidRole(req.Role) || req.Role == models.RoleOwner {
		uierrors.BadRequest(w, "role must be admin, agent or viewer")
		return
	}
	message := htmlsanitize.Sanitize(req.Message)
	if len(message) > maxMessageLen {
		uierrors.BadRequest(w, "message is too long")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	plan, err := h.Plans.Get(ctx, a.Workspace.PlanID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "plan lookup failed", err, zap.String("plan_id", a.Workspace.PlanID))
		return
	}
	members, err := h.Members.CountByWorkspace(ctx, a.WorkspaceID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "member count failed", err)
		return
	}
	pending, err := h.Invitations.CountPending(ctx, a.WorkspaceID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "invitation count failed", err)
		return
	}
	if !plan.AllowsUsers(int(members + pending + 1)) {
		uierrors.Conflict(w, "the "+plan.Name+" plan allows no more members")
		return
	}

	inv, err := h.Invitations.Create(ctx, models.Invitation{
		WorkspaceID: a.WorkspaceID,
		Email:       addr.Address,
		Role:        req.Role,
		Message:     message,
		InvitedBy:   a.UserOID,
	})
	if err != nil {
		if errors.Is(err, invitationstore.ErrDuplicatePending) {
			uierrors.Conflict(w, "this email already has a pending invitation")
			return
		}
		h.ErrLog.LogServerError(w, r, "invitation create failed", err)
		return
	}

	h.Sessions.InvalidateInvitations(a.WorkspaceID.Hex())
	h.Audit.InvitationCreated(r, a.WorkspaceID, a.UserOID, inv.ID, inv.Role)
	h.Log.Info("invitation created",
		zap.String("workspace_id", a.WorkspaceID.Hex()),
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("role", inv.Role))
	uierrors.JSON(w, http.StatusCreated, inv)
}

// HandleRevokeInvitation handles DELETE /api/workspaces/{workspaceID}/invitations/{invitationID}.
func (h *Handler) HandleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot revoke invitations")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID"))
	if err != nil {
		uierrors.NotFound(w, "invitation not found")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if err := h.Invitations.Revoke(ctx, a.WorkspaceID, id); err != nil {
		if errors.Is(err, invitationstore.ErrNotFound) {
			uierrors.NotFound(w, "invitation not found")
			return
		}
		h.ErrLog.LogServerError(w, r, "invitation revoke failed", err)
		return
	}

	h.Sessions.InvalidateInvitations(a.WorkspaceID.Hex())
	h.Audit.InvitationRevoked(r, a.WorkspaceID, a.UserOID, id)
	w.WriteHeader(http.StatusNoContent)
}
