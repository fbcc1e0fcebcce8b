// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Auth session cookie, shared with the authentication service
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: onepager-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Preference cookie (remembered workspace)
	PreferenceCookie string
	PreferenceMaxAge time.Duration

	// Session cache tuning
	SessionFreshFor     time.Duration // how long a session aggregate is served without revalidating
	SessionIdleTTL      time.Duration // entries unread for this long are swept
	SitesFreshFor       time.Duration
	InvitationsFreshFor time.Duration
	CacheLoadTimeout    time.Duration // bound on one background load
	CacheRetryAfter     time.Duration // reads report a failed load this long before retrying
	CacheSweepInterval  time.Duration
	PlanCacheSize       int

	// Scheduled jobs (robfig/cron spec)
	InvitationExpirySchedule string
	AuditRetentionSchedule   string

	// Audit trail
	AuditLog       string        // all, db, log or off
	AuditRetention time.Duration // events older than this are purged

	// Refresh endpoints, per signed-in user
	RefreshRatePerMinute float64
	RefreshBurst         int

	// Backend call deadlines
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
