// Package workspace resolves the current workspace for a signed-in user and
// carries it through the request context.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ctxKey string

const workspaceKey ctxKey = "workspace"

// Info holds workspace context for the current request.
type Info struct {
	ID     primitive.ObjectID // Workspace ObjectID
	Slug   string             // Workspace slug (e.g., "harbor")
	Name   string             // Workspace display name
	PlanID string             // Billing plan id
	Role   string             // Caller's membership role
}

/*─────────────────────────────────────────────────────────────────────────────*
| Resolver                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// MembershipLister is the membership query the resolver runs.
// membershipstore.Store satisfies it.
type MembershipLister interface {
	ListForUser(ctx context.Context, userID primitive.ObjectID, only *primitive.ObjectID, limit int64) ([]models.WorkspaceRole, error)
}

// Resolution is the current workspace and the caller's membership in it.
type Resolution struct {
	Workspace  models.Workspace
	Membership models.Membership
}

// Resolver picks the single current workspace for a user.
type Resolver struct {
	memberships MembershipLister
	log         *zap.Logger
}

// NewResolver returns a Resolver over memberships.
func NewResolver(memberships MembershipLister, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{memberships: memberships, log: logger}
}

// Resolve returns the workspace named by preferredID when the user is still
// a member of it, otherwise the workspace of the user's newest membership.
// A user with no memberships gets (nil, nil). On success the resolved id is
// written to prefs, correcting a stale hint.
func (r *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID, preferredID string, prefs *preference.Store) (*Resolution, error) {
	if preferredID != "" {
		if oid, err := primitive.ObjectIDFromHex(preferredID); err == nil {
			rows, err := r.memberships.ListForUser(ctx, userID, &oid, 1)
			if err != nil {
				return nil, fmt.Errorf("resolve preferred workspace: %w", err)
			}
			if cur := models.CurrentWorkspace(rows, nil); cur != nil {
				return r.resolved(*cur, prefs), nil
			}
		}
		r.log.Debug("preferred workspace not accessible, falling back",
			zap.String("user_id", userID.Hex()),
			zap.String("preferred_id", preferredID))
	}

	rows, err := r.memberships.ListForUser(ctx, userID, nil, 1)
	if err != nil {
		return nil, fmt.Errorf("resolve newest workspace: %w", err)
	}
	cur := models.CurrentWorkspace(nil, rows)
	if cur == nil {
		return nil, nil
	}
	return r.resolved(*cur, prefs), nil
}

func (r *Resolver) resolved(row models.WorkspaceRole, prefs *preference.Store) *Resolution {
	prefs.SetPreferredWorkspace(row.Workspace.ID.Hex())
	return &Resolution{Workspace: row.Workspace, Membership: row.Membership}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// AggregateSource returns the cached session aggregate for a user.
// session.Service satisfies it.
type AggregateSource interface {
	Aggregate(ctx context.Context, userID string) models.SessionAggregate
}

// Middleware puts the signed-in user's current workspace into the request
// context. Requests without a user, or from users with no workspace, pass
// through without workspace context.
func Middleware(src AggregateSource, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.CurrentUser(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			agg := src.Aggregate(r.Context(), user.ID)
			if agg.Workspace == nil || agg.Membership == nil {
				logger.Debug("no current workspace", zap.String("user_id", user.ID))
				next.ServeHTTP(w, r)
				return
			}

			r = withWorkspace(r, &Info{
				ID:     agg.Workspace.ID,
				Slug:   agg.Workspace.Slug,
				Name:   agg.Workspace.Name,
				PlanID: agg.Workspace.PlanID,
				Role:   agg.Membership.Role,
			})
			next.ServeHTTP(w, r)
		})
	}
}

// FromRequest returns the workspace info from the request context.
// Returns nil if no workspace context is set.
func FromRequest(r *http.Request) *Info {
	return FromContext(r.Context())
}

// FromContext returns the workspace info from the context.
// Returns nil if no workspace context is set.
func FromContext(ctx context.Context) *Info {
	if ws, ok := ctx.Value(workspaceKey).(*Info); ok {
		return ws
	}
	return nil
}

// IDFromRequest returns the workspace ID from the request context.
// Returns primitive.NilObjectID if no workspace is set.
func IDFromRequest(r *http.Request) primitive.ObjectID {
	ws := FromRequest(r)
	if ws == nil {
		return primitive.NilObjectID
	}
	return ws.ID
}

// withWorkspace adds workspace info to the request context.
func withWorkspace(r *http.Request, ws *Info) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), workspaceKey, ws))
}

// WithTestWorkspace returns a request carrying ws, for handler tests.
func WithTestWorkspace(r *http.Request, ws *Info) *http.Request {
	return withWorkspace(r, ws)
}

// RequireWorkspace rejects requests without workspace context. Users with
// no memberships belong in onboarding, so the body names that state.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromRequest(r) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no workspace", "state": "onboarding"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
