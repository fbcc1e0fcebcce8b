package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

// Invitation offers a workspace role to an email address. Acceptance is
// handled by the sign-up flow; the dashboard lists, creates and revokes.
type Invitation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Email       string             `bson:"email" json:"email"`
	EmailCI     string             `bson:"email_ci" json:"-"`
	Role        string             `bson:"role" json:"role"`
	Message     string             `bson:"message,omitempty" json:"message,omitempty"`
	Token       string             `bson:"token" json:"-"`
	Status      string             `bson:"status" json:"status"`
	InvitedBy   primitive.ObjectID `bson:"invited_by" json:"invited_by"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
