// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

var (
	ErrDuplicatePending = errors.New("this email already has a pending invitation")
	ErrNotFound         = errors.New("invitation not found")
)

func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("invitations"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a pending invitation with a fresh token. A zero ExpiresAt
// gets DefaultTTL.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	now := s.now()
	inv.ID = primitive.NewObjectID()
	inv.EmailCI = text.Fold(inv.Email)
	inv.Token = uuid.NewString()
	inv.Status = models.InvitationPending
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(DefaultTTL)
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicatePending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) pendingFilter(workspaceID primitive.ObjectID) bson.M {
	return bson.M{
		"workspace_id": workspaceID,
		"status":       models.InvitationPending,
		"expires_at":   bson.M{"$gt": s.now()},
	}
}

// ListPending returns the workspace's acceptable invitations, newest first.
func (s *Store) ListPending(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, s.pendingFilter(workspaceID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	invs := []models.Invitation{}
	if err := cur.All(ctx, &invs); err != nil {
		return nil, err
	}
	return invs, nil
}

// CountPending returns the number of acceptable invitations in a workspace.
func (s *Store) CountPending(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, s.pendingFilter(workspaceID))
}

// Revoke withdraws a pending invitation.
func (s *Store) Revoke(ctx context.Context, workspaceID, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": workspaceID, "status": models.InvitationPending},
		bson.M{"$set": bson.M{
			"status":     models.InvitationRevoked,
			"updated_at": s.now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireOverdue marks pending invitations past their expiry as expired. It
// returns the workspaces that had invitations expired and the count.
func (s *Store) ExpireOverdue(ctx context.Context) ([]primitive.ObjectID, int64, error) {
	now := s.now()
	filter := bson.M{
		"status":     models.InvitationPending,
		"expires_at": bson.M{"$lte": now},
	}

	raw, err := s.c.Distinct(ctx, "workspace_id", filter)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		return nil, 0, nil
	}

	res, err := s.c.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":     models.InvitationExpired,
		"updated_at": now,
	}})
	if err != nil {
		return nil, 0, err
	}

	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, res.ModifiedCount, nil
}
