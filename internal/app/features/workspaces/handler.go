// internal/app/features/workspaces/handler.go
package workspaces

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/store/audit"
	"github.com/dalemusser/onepager/internal/app/system/auditlog"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sessions is the part of session.Service the workspace endpoints use.
type Sessions interface {
	Aggregate(ctx context.Context, userID string) models.SessionAggregate

	Sites(ctx context.Context, workspaceID string) session.SitesView
	PeekSites(ctx context.Context, workspaceID string) session.SitesView
	RefreshSites(ctx context.Context, workspaceID string) session.SitesView
	Invitations(ctx context.Context, workspaceID string, initial []models.Invitation) session.InvitationsView
	PeekInvitations(ctx context.Context, workspaceID string) session.InvitationsView
	RefreshInvitations(ctx context.Context, workspaceID string) session.InvitationsView

	Invalidate(userID string, scope swrcache.Mask)
	InvalidateWorkspace(workspaceID string, scope swrcache.Mask) int
	InvalidateSites(workspaceID string)
	InvalidateInvitations(workspaceID string)
}

// SiteStore archives sites. sitestore.Store satisfies it.
type SiteStore interface {
	Archive(ctx context.Context, workspaceID, siteID primitive.ObjectID) error
}

// InvitationStore manages invitations. invitationstore.Store satisfies it.
type InvitationStore interface {
	Create(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	Revoke(ctx context.Context, workspaceID, id primitive.ObjectID) error
	CountPending(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

// MembershipStore manages members. membershipstore.Store satisfies it.
type MembershipStore interface {
	Get(ctx context.Context, workspaceID, userID primitive.ObjectID) (models.Membership, error)
	UpdateRole(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) error
	Remove(ctx context.Context, workspaceID, userID primitive.ObjectID) error
	CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error)
}

// WorkspaceStore deletes workspaces. workspacestore.Store satisfies it.
type WorkspaceStore interface {
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

// PlanSource resolves plans. plancatalog.Catalog satisfies it.
type PlanSource interface {
	Get(ctx context.Context, id string) (models.Plan, error)
}

// EventLister reads a workspace's audit trail. audit.Store satisfies it.
type EventLister interface {
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, after audit.Position, limit int64) ([]audit.Event, error)
}

// Handler owns the /api/workspaces/{workspaceID} endpoints.
type Handler struct {
	Sessions    Sessions
	Sites       SiteStore
	Invitations InvitationStore
	Members     MembershipStore
	Workspaces  WorkspaceStore
	Plans       PlanSource
	Events      EventLister
	Audit       *auditlog.Logger // nil disables auditing
	Log         *zap.Logger
	ErrLog      *uierrors.ErrorLogger

	// RefreshLimit wraps the refresh endpoints; nil leaves them unlimited.
	RefreshLimit func(http.Handler) http.Handler
}

// Deps groups the stores a Handler needs.
type Deps struct {
	Sites        SiteStore
	Invitations  InvitationStore
	Members      MembershipStore
	Workspaces   WorkspaceStore
	Plans        PlanSource
	Events       EventLister
	Audit        *auditlog.Logger
	RefreshLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(sessions Sessions, deps Deps, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions:    sessions,
		Sites:       deps.Sites,
		Invitations: deps.Invitations,
		Members:     deps.Members,
		Workspaces:  deps.Workspaces,
		Plans:       deps.Plans,
		Events:      deps.Events,
		Audit:       deps.Audit,
		Log:         logger,
		ErrLog:      errLog,

		RefreshLimit: deps.RefreshLimit,
	}
}

// refreshLimit applies RefreshLimit when one is configured.
func (h *Handler) refreshLimit(next http.Handler) http.Handler {
	if h.RefreshLimit == nil {
		return next
	}
	return h.RefreshLimit(next)
}
