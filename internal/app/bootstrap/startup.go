// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/onepager/internal/app/store/audit"
	dashboardstore "github.com/dalemusser/onepager/internal/app/store/dashboard"
	invitationstore "github.com/dalemusser/onepager/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/onepager/internal/app/store/memberships"
	planstore "github.com/dalemusser/onepager/internal/app/store/plans"
	profilestore "github.com/dalemusser/onepager/internal/app/store/profiles"
	sitestore "github.com/dalemusser/onepager/internal/app/store/sites"
	workspacestore "github.com/dalemusser/onepager/internal/app/store/workspaces"
	"github.com/dalemusser/onepager/internal/app/system/auditlog"
	"github.com/dalemusser/onepager/internal/app/system/metrics"
	"github.com/dalemusser/onepager/internal/app/system/plancatalog"
	"github.com/dalemusser/onepager/internal/app/system/ratelimit"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/tasks"
	"github.com/dalemusser/onepager/internal/app/system/timeouts"
	"github.com/dalemusser/onepager/internal/app/system/workers"
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// runtime is the process-wide state built by Startup and used by
// BuildHandler and Shutdown.
type runtime struct {
	registry *prometheus.Registry

	profiles    *profilestore.Store
	workspaces  *workspacestore.Store
	memberships *membershipstore.Store
	sites       *sitestore.Store
	invitations *invitationstore.Store
	plans       *plancatalog.Catalog
	events      *audit.Store

	audit     *auditlog.Logger
	refreshes *ratelimit.Limiter

	sessions  *session.Service
	resolver  *workspace.Resolver
	sweeper   *workers.CacheSweeper
	scheduler *tasks.Scheduler
}

var rt *runtime

// refreshLimiterSize bounds how many users' refresh buckets are tracked.
const refreshLimiterSize = 10000

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the stores and caches and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	}, logger)

	r, err := newRuntime(appCfg, deps, logger)
	if err != nil {
		return err
	}

	r.sweeper.Start()

	expiry := tasks.InvitationExpiryJob(r.invitations, r.sessions, r.audit, appCfg.InvitationExpirySchedule, logger)
	retention := tasks.AuditRetentionJob(r.events, appCfg.AuditRetention, appCfg.AuditRetentionSchedule, logger)
	for _, job := range []tasks.Job{expiry, retention} {
		job.Timeout = timeouts.Long()
		if err := r.scheduler.Add(job); err != nil {
			r.sweeper.Stop()
			return err
		}
	}
	r.scheduler.Start()

	rt = r
	return nil
}

func newRuntime(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*runtime, error) {
	db := deps.MongoDatabase

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	planStore := planstore.New(db)
	plans, err := plancatalog.New(planStore, appCfg.PlanCacheSize, planstore.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("plan catalog: %w", err)
	}

	r := &runtime{
		registry:    reg,
		profiles:    profilestore.New(db),
		workspaces:  workspacestore.New(db),
		memberships: membershipstore.New(db),
		sites:       sitestore.New(db),
		invitations: invitationstore.New(db),
		plans:       plans,
		events:      audit.New(db),
	}
	r.audit = auditlog.New(r.events, logger, auditlog.Config{Mode: appCfg.AuditLog})

	r.refreshes, err = ratelimit.New(appCfg.RefreshRatePerMinute, appCfg.RefreshBurst, refreshLimiterSize)
	if err != nil {
		return nil, err
	}

	loader := session.NewLoader(dashboardstore.New(db), r.profiles, logger)
	r.sessions = session.NewService(loader, r.sites, r.invitations, r.plans, session.Config{
		SessionFreshFor:     appCfg.SessionFreshFor,
		SitesFreshFor:       appCfg.SitesFreshFor,
		InvitationsFreshFor: appCfg.InvitationsFreshFor,
		IdleTTL:             appCfg.SessionIdleTTL,
		LoadTimeout:         appCfg.CacheLoadTimeout,
		RetryAfter:          appCfg.CacheRetryAfter,
		Metrics:             metrics.NewCacheMetrics(reg),
	}, logger)

	r.resolver = workspace.NewResolver(r.memberships, logger)
	r.sweeper = workers.NewCacheSweeper(r.sessions, logger, appCfg.CacheSweepInterval)
	r.scheduler = tasks.NewScheduler(logger)
	return r, nil
}
