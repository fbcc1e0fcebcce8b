package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/dalemusser/onepager/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:                 "mongodb://localhost:27017",
		MongoDatabase:            "onepager",
		SessionKey:               "a-test-session-key-that-is-long-enough",
		SessionName:              "onepager-session",
		SessionMaxAge:            time.Hour,
		PreferenceCookie:         "onepager-prefs",
		PreferenceMaxAge:         time.Hour,
		SessionFreshFor:          30 * time.Second,
		SessionIdleTTL:           5 * time.Minute,
		SitesFreshFor:            10 * time.Second,
		InvitationsFreshFor:      10 * time.Second,
		CacheLoadTimeout:         10 * time.Second,
		CacheRetryAfter:          5 * time.Second,
		CacheSweepInterval:       time.Minute,
		PlanCacheSize:            16,
		InvitationExpirySchedule: "@every 15m",
		AuditRetentionSchedule:   "@daily",
		AuditLog:                 "all",
		AuditRetention:           90 * 24 * time.Hour,
		RefreshRatePerMinute:     30,
		RefreshBurst:             5,
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{Env: "dev"}
	if err := ValidateConfig(core, validAppConfig(), testLogger()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "" }},
		{"empty database", func(c *AppConfig) { c.MongoDatabase = "" }},
		{"zero fresh window", func(c *AppConfig) { c.SessionFreshFor = 0 }},
		{"negative sweep interval", func(c *AppConfig) { c.CacheSweepInterval = -time.Second }},
		{"fresh not shorter than idle", func(c *AppConfig) { c.SessionFreshFor = c.SessionIdleTTL }},
		{"bad cron spec", func(c *AppConfig) { c.InvitationExpirySchedule = "every quarter hour" }},
		{"bad retention cron spec", func(c *AppConfig) { c.AuditRetentionSchedule = "" }},
		{"unknown audit mode", func(c *AppConfig) { c.AuditLog = "syslog" }},
		{"zero audit retention", func(c *AppConfig) { c.AuditRetention = 0 }},
		{"zero refresh burst", func(c *AppConfig) { c.RefreshBurst = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validAppConfig()
			tc.mutate(&cfg)
			if err := ValidateConfig(core, cfg, testLogger()); err == nil {
				t.Error("expected config to be rejected")
			}
		})
	}
}

func TestValidateConfig_DefaultSessionKeyInProd(t *testing.T) {
	cfg := validAppConfig()
	cfg.SessionKey = defaultSessionKey

	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, testLogger()); err != nil {
		t.Errorf("dev should accept the default key: %v", err)
	}
	if err := ValidateConfig(&config.CoreConfig{Env: "prod"}, cfg, testLogger()); err == nil {
		t.Error("prod must reject the default key")
	}
}

func TestEnsureSchema_SeedsPlansOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, validAppConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}

	n, err := db.Collection("plans").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count plans: %v", err)
	}
	if int(n) != len(models.DefaultPlans()) {
		t.Errorf("expected %d plans, got %d", len(models.DefaultPlans()), n)
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	r, err := newRuntime(validAppConfig(), DBDeps{MongoClient: db.Client(), MongoDatabase: db}, testLogger())
	if err != nil {
		t.Fatalf("newRuntime failed: %v", err)
	}
	rt = r
	t.Cleanup(func() { rt = nil })

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validAppConfig(), DBDeps{MongoClient: db.Client(), MongoDatabase: db}, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/session", http.StatusUnauthorized},
		{"GET", "/api/current/sites", http.StatusUnauthorized},
		{"GET", "/nope", http.StatusNotFound},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s %s: got %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime collectors on /metrics")
	}
}

func TestBuildHandler_RequiresStartup(t *testing.T) {
	rt = nil
	if _, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validAppConfig(), DBDeps{}, testLogger()); err == nil {
		t.Error("expected error without Startup")
	}
}
