// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// InvitationExpirer marks overdue invitations expired.
// invitationstore.Store satisfies it.
type InvitationExpirer interface {
	ExpireOverdue(ctx context.Context) ([]primitive.ObjectID, int64, error)
}

// InvitationInvalidator drops cached invitation lists.
// session.Service satisfies it.
type InvitationInvalidator interface {
	InvalidateInvitations(workspaceID string)
}

// ExpiryRecorder notes workspaces whose invitations expired.
// auditlog.Logger satisfies it.
type ExpiryRecorder interface {
	InvitationsExpired(ctx context.Context, workspaceID primitive.ObjectID)
}

// InvitationExpiryJob creates a job that expires pending invitations past
// their deadline and marks the affected workspaces' cached lists stale.
// recorder may be nil.
func InvitationExpiryJob(store InvitationExpirer, caches InvitationInvalidator, recorder ExpiryRecorder, schedule string, logger *zap.Logger) Job {
	return Job{
		Name:     "invitation-expiry",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			workspaces, count, err := store.ExpireOverdue(ctx)
			if err != nil {
				return err
			}
			for _, id := range workspaces {
				caches.InvalidateInvitations(id.Hex())
				if recorder != nil {
					recorder.InvitationsExpired(ctx, id)
				}
			}
			if count > 0 {
				logger.Info("expired invitations",
					zap.Int64("count", count),
					zap.Int("workspaces", len(workspaces)))
			}
			return nil
		},
	}
}

// EventPurger deletes old audit events. audit.Store satisfies it.
type EventPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJob creates a job that deletes audit events older than
// retention.
func AuditRetentionJob(store EventPurger, retention time.Duration, schedule string, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := store.PurgeBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("purged audit events",
					zap.Int64("count", n),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
