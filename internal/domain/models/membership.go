package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleAgent  = "agent"
	RoleViewer = "viewer"
)

// Membership joins a user to a workspace with a role. The role decides what
// the user may do elsewhere in the product; the session layer only reads it.
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// WorkspaceRole pairs a workspace with the caller's membership in it.
type WorkspaceRole struct {
	Workspace  Workspace  `bson:"workspace" json:"workspace"`
	Membership Membership `bson:"membership" json:"membership"`
}

// CurrentWorkspace picks the user's current workspace: the first preferred
// row when the user is still a member of it, otherwise the first of newest
// (newest membership first), otherwise nil. Every path that resolves the
// current workspace selects through here.
func CurrentWorkspace(preferred, newest []WorkspaceRole) *WorkspaceRole {
	switch {
	case len(preferred) > 0:
		wr := preferred[0]
		return &wr
	case len(newest) > 0:
		wr := newest[0]
		return &wr
	}
	return nil
}

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleAgent, RoleViewer:
		return true
	}
	return false
}

// CanManageMembers reports whether role may invite or remove members.
func CanManageMembers(role string) bool {
	return role == RoleOwner || role == RoleAdmin
}

// CanEditSites reports whether role may change sites.
func CanEditSites(role string) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleAgent
}
