// Package session keeps each signed-in user's dashboard data cached and
// projects it into the views the dashboard renders.
//
// Three caches back the service: session aggregates keyed by user id, and
// site lists and pending invitations keyed by workspace id.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/onepager/internal/app/system/metrics"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SiteSource lists a workspace's dashboard sites. sitestore.Store satisfies it.
type SiteSource interface {
	ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Site, error)
}

// InvitationSource lists a workspace's pending invitations.
// invitationstore.Store satisfies it.
type InvitationSource interface {
	ListPending(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Invitation, error)
}

// PlanSource resolves a plan id. plancatalog.Catalog satisfies it.
type PlanSource interface {
	Get(ctx context.Context, id string) (models.Plan, error)
}

// Config tunes the caches. Zero durations take the defaults.
type Config struct {
	SessionFreshFor     time.Duration // default 30s
	SitesFreshFor       time.Duration // default 10s
	InvitationsFreshFor time.Duration // default 10s
	IdleTTL             time.Duration // default 5m
	LoadTimeout         time.Duration // default 10s
	RetryAfter          time.Duration // default 5s; back-off after a failed load
	Metrics             *metrics.CacheMetrics
	Clock               func() time.Time
}

// Service is safe for concurrent use. Construct one per process and share it.
type Service struct {
	loader      *Loader
	plans       PlanSource
	sessions    *swrcache.Cache[models.SessionAggregate]
	sites       *swrcache.Cache[[]models.Site]
	invitations *swrcache.Cache[[]models.Invitation]
	log         *zap.Logger
}

// NewService wires the caches to their sources.
func NewService(loader *Loader, sites SiteSource, invitations InvitationSource, plans PlanSource, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionFreshFor <= 0 {
		cfg.SessionFreshFor = 30 * time.Second
	}
	if cfg.SitesFreshFor <= 0 {
		cfg.SitesFreshFor = 10 * time.Second
	}
	if cfg.InvitationsFreshFor <= 0 {
		cfg.InvitationsFreshFor = 10 * time.Second
	}

	opts := func(name string, fresh time.Duration) swrcache.Options {
		return swrcache.Options{
			Name:        name,
			FreshFor:    fresh,
			IdleTTL:     cfg.IdleTTL,
			LoadTimeout: cfg.LoadTimeout,
			RetryAfter:  cfg.RetryAfter,
			Metrics:     cfg.Metrics,
			Logger:      logger,
			Clock:       cfg.Clock,
		}
	}

	return &Service{
		loader: loader,
		plans:  plans,
		sessions: swrcache.New[models.SessionAggregate](loader.Load,
			opts("session", cfg.SessionFreshFor)),
		sites: swrcache.New(byWorkspace("sites", sites.ListByWorkspace),
			opts("sites", cfg.SitesFreshFor)),
		invitations: swrcache.New(byWorkspace("invitations", invitations.ListPending),
			opts("invitations", cfg.InvitationsFreshFor)),
		log: logger,
	}
}

// byWorkspace adapts a list query to a cache load function keyed by the
// workspace's hex id.
func byWorkspace[T any](what string, list func(context.Context, primitive.ObjectID) ([]T, error)) swrcache.LoadFunc[[]T] {
	return func(ctx context.Context, key string, _ swrcache.Previous[[]T]) ([]T, error) {
		oid, err := primitive.ObjectIDFromHex(key)
		if err != nil {
			return nil, fmt.Errorf("bad workspace id %q: %w", key, err)
		}
		items, err := list(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", what, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Invalidation                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Invalidate marks the given scopes of a user's session stale.
func (s *Service) Invalidate(userID string, scope swrcache.Mask) {
	s.sessions.Invalidate(userID, scope)
}

// InvalidateWorkspace marks the session of every cached member of the
// workspace stale and returns how many were marked.
func (s *Service) InvalidateWorkspace(workspaceID string, scope swrcache.Mask) int {
	return s.sessions.InvalidateWhere(func(_ string, agg models.SessionAggregate) bool {
		_, member := agg.RoleIn(workspaceID)
		return member
	}, scope)
}

// InvalidateSites marks a workspace's site list stale.
func (s *Service) InvalidateSites(workspaceID string) {
	s.sites.Invalidate(workspaceID, swrcache.All)
}

// InvalidateInvitations marks a workspace's invitation list stale.
func (s *Service) InvalidateInvitations(workspaceID string) {
	s.invitations.Invalidate(workspaceID, swrcache.All)
}

// Seed stores an aggregate loaded elsewhere (for example during the first
// page render) when the user has nothing cached. It reports whether the
// value was stored.
func (s *Service) Seed(userID string, agg models.SessionAggregate) bool {
	if agg.Workspaces == nil {
		agg.Workspaces = []models.WorkspaceRole{}
	}
	return s.sessions.Seed(userID, agg)
}

// Sweep evicts idle entries from every cache and returns the total evicted.
func (s *Service) Sweep() int {
	return s.sessions.Sweep() + s.sites.Sweep() + s.invitations.Sweep()
}

// Entries returns the number of cached entries per cache.
func (s *Service) Entries() map[string]int {
	return map[string]int{
		s.sessions.Name():    s.sessions.Len(),
		s.sites.Name():       s.sites.Len(),
		s.invitations.Name(): s.invitations.Len(),
	}
}

// Reset drops every cached value.
func (s *Service) Reset() {
	s.sessions.Clear()
	s.sites.Clear()
	s.invitations.Clear()
}

// remember writes the current workspace of agg to the caller's preference
// store. Coalesced loads run under the leader's context, so every caller
// records its own hint here. Callers only pass values that are not being
// revalidated.
func (s *Service) remember(ctx context.Context, agg models.SessionAggregate) {
	if id := agg.WorkspaceID(); id != "" {
		preference.FromContext(ctx).SetPreferredWorkspace(id)
	}
}
