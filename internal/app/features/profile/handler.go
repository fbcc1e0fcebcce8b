// internal/app/features/profile/handler.go
package profile

import (
	"context"

	uierrors "github.com/dalemusser/onepager/internal/app/features/errors"
	profilestore "github.com/dalemusser/onepager/internal/app/store/profiles"
	"github.com/dalemusser/onepager/internal/app/system/auditlog"
	"github.com/dalemusser/onepager/internal/app/system/swrcache"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Updater writes profile changes. profilestore.Store satisfies it.
type Updater interface {
	Update(ctx context.Context, id primitive.ObjectID, u profilestore.Update) error
}

// Invalidator marks cached session scopes stale. session.Service satisfies it.
type Invalidator interface {
	Invalidate(userID string, scope swrcache.Mask)
}

// Handler owns the profile settings endpoint.
type Handler struct {
	Profiles Updater
	Sessions Invalidator
	Audit    *auditlog.Logger // nil disables auditing
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a Handler.
func NewHandler(profiles Updater, sessions Invalidator, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Profiles: profiles,
		Sessions: sessions,
		Log:      logger,
		ErrLog:   errLog,
	}
}
