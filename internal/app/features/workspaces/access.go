// internal/app/features/workspaces/access.go
package workspaces

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ctxKey string

const accessKey ctxKey = "workspaceAccess"

// access is the caller's standing in the workspace named by the URL.
type access struct {
	UserID      string
	UserOID     primitive.ObjectID
	WorkspaceID primitive.ObjectID
	Workspace   models.Workspace
	Role        string
}

// requireMember resolves {workspaceID} against the caller's cached
// memberships. Non-members get a 404 so workspace ids are not probeable.
func (h *Handler) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.CurrentUser(r)
		if !ok {
			uierrors.Unauthorized(w)
			return
		}
		uid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			uierrors.Unauthorized(w)
			return
		}
		wsHex := chi.URLParam(r, "workspaceID")
		wsID, err := primitive.ObjectIDFromHex(wsHex)
		if err != nil {
			uierrors.NotFound(w, "workspace not found")
			return
		}

		agg := h.Sessions.Aggregate(r.Context(), u.ID)
		for _, wr := range agg.Workspaces {
			if wr.Workspace.ID == wsID {
				a := &access{
					UserID:      u.ID,
					UserOID:     uid,
					WorkspaceID: wsID,
					Workspace:   wr.Workspace,
					Role:        wr.Membership.Role,
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accessKey, a)))
				return
			}
		}
		uierrors.NotFound(w, "workspace not found")
	})
}

// currentMember grants access to the caller's current workspace as put in
// the context by workspace.Middleware.
func (h *Handler) currentMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.CurrentUser(r)
		if !ok {
			uierrors.Unauthorized(w)
			return
		}
		uid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			uierrors.Unauthorized(w)
			return
		}
		ws := workspace.FromRequest(r)
		if ws == nil {
			uierrors.NotFound(w, "workspace not found")
			return
		}
		a := &access{
			UserID:      u.ID,
			UserOID:     uid,
			WorkspaceID: ws.ID,
			Workspace:   models.Workspace{ID: ws.ID, Slug: ws.Slug, Name: ws.Name, PlanID: ws.PlanID},
			Role:        ws.Role,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accessKey, a)))
	})
}

func accessFrom(r *http.Request) *access {
	a, _ := r.Context().Value(accessKey).(*access)
	return a
}

// nowait reports whether the caller asked not to block on a cold cache.
func nowait(r *http.Request) bool {
	return r.URL.Query().Get("nowait") == "1"
}
