// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	dashboardfeature "github.com/dalemusser/onepager/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/onepager/internal/app/features/errors"
	healthfeature "github.com/dalemusser/onepager/internal/app/features/health"
	profilefeature "github.com/dalemusser/onepager/internal/app/features/profile"
	workspacesfeature "github.com/dalemusser/onepager/internal/app/features/workspaces"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/preference"
	"github.com/dalemusser/onepager/internal/app/system/ratelimit"
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Every /api route requires a signed-in user and carries the preference
// cookie. Only /api/current resolves the current workspace up front.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if rt == nil {
		return nil, errors.New("BuildHandler called before Startup")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	prefCodec := preference.NewCodec(appCfg.SessionKey, appCfg.PreferenceMaxAge)
	prefOpts := preference.CookieOptions{
		Name:   appCfg.PreferenceCookie,
		Domain: appCfg.SessionDomain,
		Secure: secure,
		MaxAge: appCfg.PreferenceMaxAge,
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	refreshLimit := ratelimit.Middleware(rt.refreshes, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(errorsfeature.RouteNotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rt.sessions, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Use(sessionMgr.LoadSessionUser)
		api.Use(auth.RequireSignedIn)
		api.Use(preference.Middleware(prefCodec, prefOpts, logger))

		dashboardHandler := dashboardfeature.NewHandler(rt.sessions, rt.resolver, errLog, logger)
		dashboardHandler.Audit = rt.audit
		dashboardHandler.RefreshLimit = refreshLimit
		api.Mount("/session", dashboardfeature.Routes(dashboardHandler))

		profileHandler := profilefeature.NewHandler(rt.profiles, rt.sessions, errLog, logger)
		profileHandler.Audit = rt.audit
		api.Mount("/profile", profilefeature.Routes(profileHandler))

		workspacesHandler := workspacesfeature.NewHandler(rt.sessions, workspacesfeature.Deps{
			Sites:       rt.sites,
			Invitations: rt.invitations,
			Members:     rt.memberships,
			Workspaces:  rt.workspaces,
			Plans:       rt.plans,
			Events:      rt.events,
			Audit:       rt.audit,

			RefreshLimit: refreshLimit,
		}, errLog, logger)
		api.Mount("/workspaces", workspacesfeature.Routes(workspacesHandler))

		api.Group(func(cur chi.Router) {
			cur.Use(workspace.Middleware(rt.sessions, logger))
			cur.Mount("/current", workspacesfeature.CurrentRoutes(workspacesHandler))
		})
	})

	return r, nil
}
