// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"

	"github.com/dalemusser/onepager/internal/app/store/audit"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for Config.Mode.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Mode is one of "all", "db", "log" or "off". Empty means "all".
	Mode string
}

// Sink persists events. audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via Sink) and structured logs (via zap).
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = ModeAll
	}
	return &Logger{
		sink:   sink,
		zapLog: zapLog,
		config: config,
	}
}

// clientIP returns the request's remote host. chi's RealIP middleware has
// already folded proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event_type", event.EventType),
		zap.String("ip", event.IP),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.WorkspaceID != nil {
		fields = append(fields, zap.String("workspace_id", event.WorkspaceID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_id", event.TargetID.Hex()))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.config.Mode == ModeOff {
		return
	}

	if l.config.Mode == ModeAll || l.config.Mode == ModeLog {
		l.logToZap(event)
	}

	if l.config.Mode == ModeAll || l.config.Mode == ModeDB {
		if err := l.sink.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// fromRequest fills the request-derived fields of an event.
func fromRequest(r *http.Request, eventType string, workspaceID, actorID primitive.ObjectID) audit.Event {
	ev := audit.Event{
		EventType: eventType,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if !workspaceID.IsZero() {
		ev.WorkspaceID = &workspaceID
	}
	if !actorID.IsZero() {
		ev.ActorID = &actorID
	}
	return ev
}

func ptr(id primitive.ObjectID) *primitive.ObjectID {
	return &id
}

// --- Membership Events ---

// InvitationCreated logs a new invitation.
func (l *Logger) InvitationCreated(r *http.Request, workspaceID, actorID, invitationID primitive.ObjectID, role string) {
	ev := fromRequest(r, audit.EventInvitationCreated, workspaceID, actorID)
	ev.TargetID = ptr(invitationID)
	ev.Details = map[string]string{"role": role}
	l.Log(r.Context(), ev)
}

// InvitationRevoked logs a revoked invitation.
func (l *Logger) InvitationRevoked(r *http.Request, workspaceID, actorID, invitationID primitive.ObjectID) {
	ev := fromRequest(r, audit.EventInvitationRevoked, workspaceID, actorID)
	ev.TargetID = ptr(invitationID)
	l.Log(r.Context(), ev)
}

// MemberRoleChanged logs a role change.
func (l *Logger) MemberRoleChanged(r *http.Request, workspaceID, actorID, userID primitive.ObjectID, from, to string) {
	ev := fromRequest(r, audit.EventMemberRoleChanged, workspaceID, actorID)
	ev.TargetID = ptr(userID)
	ev.Details = map[string]string{"from": from, "to": to}
	l.Log(r.Context(), ev)
}

// MemberRemoved logs a removal. A member removing themselves is recorded
// as leaving.
func (l *Logger) MemberRemoved(r *http.Request, workspaceID, actorID, userID primitive.ObjectID, role string) {
	eventType := audit.EventMemberRemoved
	if actorID == userID {
		eventType = audit.EventMemberLeft
	}
	ev := fromRequest(r, eventType, workspaceID, actorID)
	ev.TargetID = ptr(userID)
	ev.Details = map[string]string{"role": role}
	l.Log(r.Context(), ev)
}

// --- Workspace Events ---

// SiteArchived logs an archived site.
func (l *Logger) SiteArchived(r *http.Request, workspaceID, actorID, siteID primitive.ObjectID) {
	ev := fromRequest(r, audit.EventSiteArchived, workspaceID, actorID)
	ev.TargetID = ptr(siteID)
	l.Log(r.Context(), ev)
}

// WorkspaceDeleted logs a soft-deleted workspace.
func (l *Logger) WorkspaceDeleted(r *http.Request, workspaceID, actorID primitive.ObjectID) {
	l.Log(r.Context(), fromRequest(r, audit.EventWorkspaceDeleted, workspaceID, actorID))
}

// WorkspaceSwitched logs a change of the caller's current workspace.
func (l *Logger) WorkspaceSwitched(r *http.Request, workspaceID, actorID primitive.ObjectID) {
	l.Log(r.Context(), fromRequest(r, audit.EventWorkspaceSwitched, workspaceID, actorID))
}

// --- Account Events ---

// ProfileUpdated logs a profile change. fields names what changed.
func (l *Logger) ProfileUpdated(r *http.Request, actorID primitive.ObjectID, fields []string) {
	ev := fromRequest(r, audit.EventProfileUpdated, primitive.NilObjectID, actorID)
	ev.Details = map[string]string{}
	for _, f := range fields {
		ev.Details[f] = "changed"
	}
	l.Log(r.Context(), ev)
}

// --- Scheduled Events ---

// InvitationsExpired logs invitations expired by the scheduler.
func (l *Logger) InvitationsExpired(ctx context.Context, workspaceID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		EventType:   audit.EventInvitationExpired,
		WorkspaceID: ptr(workspaceID),
	})
}
