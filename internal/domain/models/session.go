package models

// SessionAggregate is the per-user bundle the dashboard renders from. It is
// never persisted; it is rebuilt on a cache miss or after invalidation.
//
// Workspace is nil iff Membership is nil iff the user has no memberships.
// When Workspace is set, Workspaces contains it.
type SessionAggregate struct {
	Profile    *Profile        `json:"profile"`
	Workspace  *Workspace      `json:"workspace"`
	Membership *Membership     `json:"membership"`
	Workspaces []WorkspaceRole `json:"workspaces"`
}

// WorkspaceID returns the hex id of the current workspace, or "" when the
// user has none.
func (s SessionAggregate) WorkspaceID() string {
	if s.Workspace == nil {
		return ""
	}
	return s.Workspace.ID.Hex()
}

// RoleIn returns the caller's role in the given workspace and whether the
// caller is a member of it.
func (s SessionAggregate) RoleIn(workspaceID string) (string, bool) {
	for _, wr := range s.Workspaces {
		if wr.Workspace.ID.Hex() == workspaceID {
			return wr.Membership.Role, true
		}
	}
	return "", false
}
