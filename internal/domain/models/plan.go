package models

// Plan identifiers seeded at startup.
const (
	PlanFree = "free"
	PlanPro  = "pro"
	PlanTeam = "team"
)

// Plan features.
const (
	FeatureCustomDomain = "custom_domain"
	FeatureClientPortal = "client_portal"
	FeatureBranding     = "branding"
)

// Plan is a billing tier. Plans are global and read-mostly.
type Plan struct {
	ID       string          `bson:"_id" json:"id"`
	Name     string          `bson:"name" json:"name"`
	Features map[string]bool `bson:"features" json:"features"`
	MaxUsers int             `bson:"max_users" json:"max_users"` // 0 means unlimited
	MaxSites int             `bson:"max_sites" json:"max_sites"` // 0 means unlimited
}

// Has reports whether the plan enables the named feature.
func (p Plan) Has(feature string) bool {
	return p.Features[feature]
}

// AllowsUsers reports whether a workspace on this plan may hold n users.
func (p Plan) AllowsUsers(n int) bool {
	return p.MaxUsers == 0 || n <= p.MaxUsers
}

// AllowsSites reports whether a workspace on this plan may hold n sites.
func (p Plan) AllowsSites(n int) bool {
	return p.MaxSites == 0 || n <= p.MaxSites
}

// DefaultPlans returns the tiers a fresh deployment starts with.
func DefaultPlans() []Plan {
	return []Plan{
		{ID: PlanFree, Name: "Free", Features: map[string]bool{}, MaxUsers: 1, MaxSites: 3},
		{ID: PlanPro, Name: "Pro", Features: map[string]bool{FeatureBranding: true, FeatureClientPortal: true}, MaxUsers: 3, MaxSites: 50},
		{ID: PlanTeam, Name: "Team", Features: map[string]bool{FeatureBranding: true, FeatureClientPortal: true, FeatureCustomDomain: true}, MaxUsers: 25},
	}
}
