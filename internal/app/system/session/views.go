package session

import (
	"context"
	"strings"

	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.uber.org/zap"
)

// SessionView is the full aggregate. Loading is true while a load is in
// flight; a failed load with nothing cached yields Empty() with Loading
// false so the caller can offer a retry.
type SessionView struct {
	Session models.SessionAggregate `json:"session"`
	Loading bool                    `json:"loading"`
}

// ProfileView is the header card: who is signed in.
type ProfileView struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar"`
	Loading bool   `json:"loading"`
}

// WorkspaceView is the current workspace with the caller's role and plan.
type WorkspaceView struct {
	Workspace *models.Workspace `json:"workspace"`
	Role      string            `json:"role,omitempty"`
	Plan      *models.Plan      `json:"plan"`
	Loading   bool              `json:"loading"`
}

// SitesView lists a workspace's sites.
type SitesView struct {
	Sites   []models.Site `json:"sites"`
	Loading bool          `json:"loading"`
}

// InvitationsView lists a workspace's pending invitations.
type InvitationsView struct {
	Invitations []models.Invitation `json:"invitations"`
	Loading     bool                `json:"loading"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionData returns the user's aggregate, waiting for the first load.
func (s *Service) SessionData(ctx context.Context, userID string) SessionView {
	return s.sessionView(ctx, userID, s.sessions.Get(ctx, userID))
}

// PeekSessionData is SessionData without waiting: with nothing cached it
// starts the load and reports Loading.
func (s *Service) PeekSessionData(ctx context.Context, userID string) SessionView {
	return s.sessionView(ctx, userID, s.sessions.Peek(ctx, userID))
}

// RefreshSession reloads every scope of the user's aggregate and waits.
func (s *Service) RefreshSession(ctx context.Context, userID string) SessionView {
	return s.sessionView(ctx, userID, s.sessions.Refresh(ctx, userID))
}

// Aggregate returns the user's aggregate, waiting for the first load.
func (s *Service) Aggregate(ctx context.Context, userID string) models.SessionAggregate {
	return s.SessionData(ctx, userID).Session
}

func (s *Service) sessionView(ctx context.Context, userID string, res swrcache.Result[models.SessionAggregate]) SessionView {
	if !res.Found {
		if res.Err != nil {
			s.log.Debug("session unavailable",
				zap.String("user_id", userID),
				zap.Error(res.Err))
		}
		// A caller that gave up waiting sees the load as still running.
		return SessionView{Session: Empty(), Loading: res.Loading}
	}
	if !res.Loading {
		s.remember(ctx, res.Value)
	}
	return SessionView{Session: res.Value, Loading: res.Loading}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profile and workspace projections                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// Profile projects the user's aggregate into a ProfileView.
func (s *Service) Profile(ctx context.Context, userID, fallbackEmail string) ProfileView {
	return ProfileFrom(s.SessionData(ctx, userID), fallbackEmail)
}

// ProfileFrom builds a ProfileView. fallbackEmail comes from the auth
// session and is used when the profile is missing. While loading the avatar
// is always empty; no substitute image is ever offered.
func ProfileFrom(v SessionView, fallbackEmail string) ProfileView {
	out := ProfileView{Email: fallbackEmail, Loading: v.Loading}
	if p := v.Session.Profile; p != nil {
		out.Name = p.FullName
		if p.Email != "" {
			out.Email = p.Email
		}
		if !v.Loading {
			out.Avatar = p.AvatarURL
		}
	}
	if out.Name == "" {
		out.Name, _, _ = strings.Cut(out.Email, "@")
	}
	return out
}

// Workspace projects the user's aggregate into a WorkspaceView.
func (s *Service) Workspace(ctx context.Context, userID string) WorkspaceView {
	return s.WorkspaceFrom(ctx, s.SessionData(ctx, userID))
}

// WorkspaceFrom builds a WorkspaceView, resolving the plan through the
// catalog. An unknown plan leaves Plan nil.
func (s *Service) WorkspaceFrom(ctx context.Context, v SessionView) WorkspaceView {
	out := WorkspaceView{Workspace: v.Session.Workspace, Loading: v.Loading}
	if v.Session.Membership != nil {
		out.Role = v.Session.Membership.Role
	}
	if out.Workspace == nil || s.plans == nil {
		return out
	}
	plan, err := s.plans.Get(ctx, out.Workspace.PlanID)
	if err != nil {
		s.log.Warn("plan lookup failed",
			zap.String("workspace_id", out.Workspace.ID.Hex()),
			zap.String("plan_id", out.Workspace.PlanID),
			zap.Error(err))
		return out
	}
	out.Plan = &plan
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sites and invitations                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Sites returns the workspace's sites, waiting for the first load.
func (s *Service) Sites(ctx context.Context, workspaceID string) SitesView {
	return sitesView(s.sites.Get(ctx, workspaceID))
}

// PeekSites is Sites without waiting.
func (s *Service) PeekSites(ctx context.Context, workspaceID string) SitesView {
	return sitesView(s.sites.Peek(ctx, workspaceID))
}

// RefreshSites reloads the workspace's sites and waits.
func (s *Service) RefreshSites(ctx context.Context, workspaceID string) SitesView {
	return sitesView(s.sites.Refresh(ctx, workspaceID))
}

func sitesView(res swrcache.Result[[]models.Site]) SitesView {
	if !res.Found || res.Value == nil {
		return SitesView{Sites: []models.Site{}, Loading: res.Loading}
	}
	return SitesView{Sites: res.Value, Loading: res.Loading}
}

// Invitations returns the workspace's pending invitations. A non-nil
// initial list seeds an empty cache and is returned without a load.
func (s *Service) Invitations(ctx context.Context, workspaceID string, initial []models.Invitation) InvitationsView {
	if initial != nil {
		s.invitations.Seed(workspaceID, initial)
	}
	return invitationsView(s.invitations.Get(ctx, workspaceID))
}

// PeekInvitations is Invitations without waiting or seeding.
func (s *Service) PeekInvitations(ctx context.Context, workspaceID string) InvitationsView {
	return invitationsView(s.invitations.Peek(ctx, workspaceID))
}

// RefreshInvitations reloads the workspace's invitations and waits.
func (s *Service) RefreshInvitations(ctx context.Context, workspaceID string) InvitationsView {
	return invitationsView(s.invitations.Refresh(ctx, workspaceID))
}

func invitationsView(res swrcache.Result[[]models.Invitation]) InvitationsView {
	if !res.Found || res.Value == nil {
		return InvitationsView{Invitations: []models.Invitation{}, Loading: res.Loading}
	}
	return InvitationsView{Invitations: res.Value, Loading: res.Loading}
}
