// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	"github.com/dalemusser/onepager/internal/app/system/auditlog"
	"github.com/dalemusser/onepager/internal/app/system/auth"
	"github.com/dalemusser/onepager/internal/app/system/session"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"github.com/dalemusser/onepager/internal/app/system/workspace"
	"go.uber.org/zap"
)

// Sessions is the part of session.Service the dashboard endpoints use.
type Sessions interface {
	SessionData(ctx context.Context, userID string) session.SessionView
	PeekSessionData(ctx context.Context, userID string) session.SessionView
	RefreshSession(ctx context.Context, userID string) session.SessionView
	WorkspaceFrom(ctx context.Context, v session.SessionView) session.WorkspaceView
	Invalidate(userID string, scope swrcache.Mask)
}

// Handler owns the /api/session endpoints.
type Handler struct {
	Sessions Sessions
	Resolver *workspace.Resolver
	Audit    *auditlog.Logger // nil disables auditing
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger

	// RefreshLimit wraps POST /refresh; nil leaves it unlimited.
	RefreshLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler.
func NewHandler(sessions Sessions, resolver *workspace.Resolver, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sessions,
		Resolver: resolver,
		Log:      logger,
		ErrLog:   errLog,
	}
}

func (h *Handler) refreshLimit(next http.Handler) http.Handler {
	if h.RefreshLimit == nil {
		return next
	}
	return h.RefreshLimit(next)
}

// view reads the caller's session, without waiting when ?nowait=1.
func (h *Handler) view(r *http.Request, userID string) session.SessionView {
	if r.URL.Query().Get("nowait") == "1" {
		return h.Sessions.PeekSessionData(r.Context(), userID)
	}
	return h.Sessions.SessionData(r.Context(), userID)
}

// currentUser returns the signed-in user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.SessionUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Unauthorized(w)
		return nil, false
	}
	return u, true
}
