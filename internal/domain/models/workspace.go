package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace represents a tenant in onepager. A workspace is the unit of
// billing and access control:
// - Sites and invitations belong to exactly one workspace
// - Users reach a workspace through a Membership
// - The slug doubles as the workspace subdomain (e.g., acme.onepager.app)
//
// Workspaces are created by the signup/creation flow and are never mutated
// by the session layer. Deletion is soft: DeletedAt is set and the workspace
// disappears from every membership query.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"-"` // Case-insensitive for sorting

	// Slug must be unique across all workspaces.
	Slug string `bson:"slug" json:"slug"`

	// Plan identifier (see Plan.ID), e.g. "free", "pro", "team".
	PlanID string `bson:"plan_id" json:"plan_id"`

	// Billing
	BillingEmail         string `bson:"billing_email,omitempty" json:"billing_email,omitempty"`
	StripeCustomerID     string `bson:"stripe_customer_id,omitempty" json:"-"`
	StripeSubscriptionID string `bson:"stripe_subscription_id,omitempty" json:"-"`
	SubscriptionStatus   string `bson:"subscription_status,omitempty" json:"subscription_status,omitempty"`

	Branding Branding `bson:"branding" json:"branding"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"-"`
}

// Branding is the per-workspace look applied to published sites and portals.
type Branding struct {
	LogoURL      string `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	PrimaryColor string `bson:"primary_color,omitempty" json:"primary_color,omitempty"`
	AccentColor  string `bson:"accent_color,omitempty" json:"accent_color,omitempty"`
}

// IsDeleted reports whether the workspace has been soft-deleted.
func (w Workspace) IsDeleted() bool {
	return w.DeletedAt != nil
}
