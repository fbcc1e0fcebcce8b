package session

import (
	"context"
	"errors"
	"fmt"

	dashboardstore "github.com/dalemusser/onepager/internal/app/store/dashboard"
	profilestore "github.com/dalemusser/onepager/internal/app/store/profiles"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DashboardSource runs the batched dashboard query.
// dashboardstore.Store satisfies it.
type DashboardSource interface {
	GetDashboardData(ctx context.Context, userID, preferredID primitive.ObjectID) (dashboardstore.Data, error)
}

// ProfileSource reads a single profile. It must report a missing profile as
// profilestore.ErrNotFound. profilestore.Store satisfies it.
type ProfileSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Profile, error)
}

// Loader builds session aggregates from the backing store.
type Loader struct {
	dash     DashboardSource
	profiles ProfileSource
	log      *zap.Logger
}

// NewLoader returns a Loader.
func NewLoader(dash DashboardSource, profiles ProfileSource, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dash: dash, profiles: profiles, log: logger}
}

// Empty returns the aggregate of a user with nothing loaded: no profile, no
// workspace and an empty workspace list.
func Empty() models.SessionAggregate {
	return models.SessionAggregate{Workspaces: []models.WorkspaceRole{}}
}

// Fetch loads the full aggregate in one round trip. preferredID is a hint;
// an empty or malformed value selects the newest membership.
func (l *Loader) Fetch(ctx context.Context, userID, preferredID string) (models.SessionAggregate, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return Empty(), fmt.Errorf("bad user id %q: %w", userID, err)
	}
	pid, _ := primitive.ObjectIDFromHex(preferredID)

	data, err := l.dash.GetDashboardData(ctx, uid, pid)
	if err != nil {
		return Empty(), fmt.Errorf("dashboard data: %w", err)
	}

	agg := Empty()
	agg.Profile = data.Profile
	if data.Workspaces != nil {
		agg.Workspaces = data.Workspaces
	}
	if data.Current != nil {
		ws := data.Current.Workspace
		m := data.Current.Membership
		agg.Workspace = &ws
		agg.Membership = &m
	}
	return agg, nil
}

// FetchProfile loads only the profile. A missing or soft-deleted profile is
// (nil, nil).
func (l *Loader) FetchProfile(ctx context.Context, userID string) (*models.Profile, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("bad user id %q: %w", userID, err)
	}
	p, err := l.profiles.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &p, nil
}

// Load is the session cache's load function. When only the profile scope is
// stale it re-fetches the profile and keeps the cached workspace selection;
// otherwise it runs the full fetch with the preference hint carried by ctx,
// falling back to the previously selected workspace.
//
// On failure it returns Empty() together with the error. The error is
// logged here and never reaches the views.
func (l *Loader) Load(ctx context.Context, userID string, prev swrcache.Previous[models.SessionAggregate]) (models.SessionAggregate, error) {
	if prev.Found && profileOnly(prev.Pending) {
		p, err := l.FetchProfile(ctx, userID)
		if err != nil {
			l.log.Error("session profile load failed",
				zap.String("user_id", userID),
				zap.Error(err))
			return Empty(), err
		}
		agg := prev.Value
		agg.Profile = p
		return agg, nil
	}

	hint := preference.FromContext(ctx).PreferredWorkspace()
	if hint == "" && prev.Found {
		hint = prev.Value.WorkspaceID()
	}

	agg, err := l.Fetch(ctx, userID, hint)
	if err != nil {
		l.log.Error("session load failed",
			zap.String("user_id", userID),
			zap.String("preferred_id", hint),
			zap.Error(err))
		return Empty(), err
	}
	return agg, nil
}
