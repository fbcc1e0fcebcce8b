// internal/app/features/workspaces/audit.go
package workspaces

import (
	"net/http"
	"strconv"
	"time"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/store/audit"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"github.com/dalemusser/onepager/internal/domain/models"
)

const maxAuditLimit = 500

type auditPage struct {
	Events []audit.Event `json:"events"`
	// Next is the cursor for the following page; empty on the last.
	Next string `json:"next,omitempty"`
}

// ServeAudit handles GET /api/workspaces/{workspaceID}/audit.
//
//	?cursor=<next>&limit=<n>
//	?before=<RFC3339>&limit=<n>
//
// Events come newest first. The trail is for managers only.
func (h *Handler) ServeAudit(w http.ResponseWriter, r *http.Request) {
	a := accessFrom(r)
	if !models.CanManageMembers(a.Role) {
		uierrors.Forbidden(w, "your role cannot view the audit trail")
		return
	}

	var after audit.Position
	switch q := r.URL.Query(); {
	case q.Get("cursor") != "":
		p, ok := audit.DecodePosition(q.Get("cursor"))
		if !ok {
			uierrors.BadRequest(w, "cursor is not valid")
			return
		}
		after = p
	case q.Get("before") != "":
		t, err := time.Parse(time.RFC3339Nano, q.Get("before"))
		if err != nil {
			uierrors.BadRequest(w, "before must be an RFC 3339 timestamp")
			return
		}
		after = audit.Position{Timestamp: t}
	}
	limit := int64(audit.DefaultLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			uierrors.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	events, err := h.Events.ListByWorkspace(ctx, a.WorkspaceID, after, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit list failed", err)
		return
	}

	page := auditPage{Events: events}
	if int64(len(events)) == limit {
		page.Next = events[len(events)-1].Position().Encode()
	}
	uierrors.JSON(w, http.StatusOK, page)
}
