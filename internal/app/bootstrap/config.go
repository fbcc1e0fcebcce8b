// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/onepager/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for onepager.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: ONEPAGER_MONGO_URI, ONEPAGER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "onepager", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key shared with the auth service"},
	{Name: "session_name", Default: "onepager-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Remembered workspace
	{Name: "preference_cookie", Default: "onepager-prefs", Desc: "Preference cookie name"},
	{Name: "preference_max_age", Default: "8760h", Desc: "Preference cookie lifetime"},

	// Session cache
	{Name: "session_fresh_for", Default: "30s", Desc: "How long a cached session is served without revalidating"},
	{Name: "session_idle_ttl", Default: "5m", Desc: "Cached entries unread for this long are evicted"},
	{Name: "sites_fresh_for", Default: "10s", Desc: "Freshness window for cached site lists"},
	{Name: "invitations_fresh_for", Default: "10s", Desc: "Freshness window for cached invitation lists"},
	{Name: "cache_load_timeout", Default: "10s", Desc: "Deadline for one background cache load"},
	{Name: "cache_retry_after", Default: "5s", Desc: "How long a failed cache load is reported before the next attempt"},
	{Name: "cache_sweep_interval", Default: "1m", Desc: "How often idle cache entries are swept"},
	{Name: "plan_cache_size", Default: 64, Desc: "Plans held by the plan catalog"},

	// Scheduled jobs
	{Name: "invitation_expiry_schedule", Default: "@every 15m", Desc: "Cron spec for expiring overdue invitations"},
	{Name: "audit_retention_schedule", Default: "@daily", Desc: "Cron spec for purging old audit events"},

	// Audit trail
	{Name: "audit_log", Default: "all", Desc: "Audit destination: all, db, log or off"},
	{Name: "audit_retention", Default: "2160h", Desc: "How long audit events are kept"},

	// Refresh rate limiting
	{Name: "refresh_rate_per_minute", Default: 30, Desc: "Sustained refresh requests per user per minute"},
	{Name: "refresh_burst", Default: 5, Desc: "Refresh requests a user may make back to back"},

	// Backend deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and aggregations"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for scheduled jobs"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, ONEPAGER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ONEPAGER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		PreferenceCookie: appValues.String("preference_cookie"),
		PreferenceMaxAge: appValues.Duration("preference_max_age", 8760*time.Hour),

		SessionFreshFor:     appValues.Duration("session_fresh_for", 30*time.Second),
		SessionIdleTTL:      appValues.Duration("session_idle_ttl", 5*time.Minute),
		SitesFreshFor:       appValues.Duration("sites_fresh_for", 10*time.Second),
		InvitationsFreshFor: appValues.Duration("invitations_fresh_for", 10*time.Second),
		CacheLoadTimeout:    appValues.Duration("cache_load_timeout", 10*time.Second),
		CacheRetryAfter:     appValues.Duration("cache_retry_after", 5*time.Second),
		CacheSweepInterval:  appValues.Duration("cache_sweep_interval", time.Minute),
		PlanCacheSize:       appValues.Int("plan_cache_size"),

		InvitationExpirySchedule: appValues.String("invitation_expiry_schedule"),
		AuditRetentionSchedule:   appValues.String("audit_retention_schedule"),

		AuditLog:       appValues.String("audit_log"),
		AuditRetention: appValues.Duration("audit_retention", 2160*time.Hour),

		RefreshRatePerMinute: float64(appValues.Int("refresh_rate_per_minute")),
		RefreshBurst:         appValues.Int("refresh_burst"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Bad Mongo URIs, cache windows that cannot work together and unparseable
// cron specs are caught here, before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}

	windows := map[string]time.Duration{
		"session_fresh_for":     appCfg.SessionFreshFor,
		"session_idle_ttl":      appCfg.SessionIdleTTL,
		"sites_fresh_for":       appCfg.SitesFreshFor,
		"invitations_fresh_for": appCfg.InvitationsFreshFor,
		"cache_load_timeout":    appCfg.CacheLoadTimeout,
		"cache_retry_after":     appCfg.CacheRetryAfter,
		"cache_sweep_interval":  appCfg.CacheSweepInterval,
	}
	for name, d := range windows {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if appCfg.SessionFreshFor >= appCfg.SessionIdleTTL {
		return fmt.Errorf("session_fresh_for (%s) must be shorter than session_idle_ttl (%s)",
			appCfg.SessionFreshFor, appCfg.SessionIdleTTL)
	}

	schedules := []struct{ name, spec string }{
		{"invitation_expiry_schedule", appCfg.InvitationExpirySchedule},
		{"audit_retention_schedule", appCfg.AuditRetentionSchedule},
	}
	for _, s := range schedules {
		if _, err := cron.ParseStandard(s.spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", s.name, s.spec, err)
		}
	}

	switch appCfg.AuditLog {
	case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		return fmt.Errorf("audit_log must be all, db, log or off, got %q", appCfg.AuditLog)
	}
	if appCfg.AuditRetention <= 0 {
		return fmt.Errorf("audit_retention must be positive, got %s", appCfg.AuditRetention)
	}
	if appCfg.RefreshRatePerMinute <= 0 || appCfg.RefreshBurst <= 0 {
		return fmt.Errorf("refresh_rate_per_minute and refresh_burst must be positive")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == defaultSessionKey {
		return fmt.Errorf("session_key must be set in production")
	}
	return nil
}

const defaultSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
