// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

var (
	ErrBadRole             = errors.New("role must be owner, admin, agent or viewer")
	ErrDuplicateMembership = errors.New("user is already a member of this workspace")
	ErrNotFound            = errors.New("membership not found")
)

// Add creates a membership.
func (s *Store) Add(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) (models.Membership, error) {
	if !models.ValidRole(role) {
		return models.Membership{}, ErrBadRole
	}
	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Get returns the membership for (workspaceID, userID).
func (s *Store) Get(ctx context.Context, workspaceID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Membership{}, ErrNotFound
		}
		return models.Membership{}, err
	}
	return m, nil
}

// UpdateRole changes a member's role.
func (s *Store) UpdateRole(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) error {
	if !models.ValidRole(role) {
		return ErrBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"workspace_id": workspaceID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the membership for (workspaceID, userID).
func (s *Store) Remove(ctx context.Context, workspaceID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByWorkspace returns the number of members of a workspace.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}

// ListUserIDs returns the ids of every member of a workspace.
func (s *Store) ListUserIDs(ctx context.Context, workspaceID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "user_id", bson.M{"workspace_id": workspaceID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListForUser returns the user's memberships joined to live workspaces,
// newest membership first. When only is non-nil the result is restricted to
// that workspace. A limit of zero means no limit.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, only *primitive.ObjectID, limit int64) ([]models.WorkspaceRole, error) {
	match := bson.M{"user_id": userID}
	if only != nil {
		match["workspace_id"] = *only
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, WorkspaceRoleStages(limit)...)

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rows := []models.WorkspaceRole{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// WorkspaceRoleStages turns matched membership documents into
// models.WorkspaceRole rows: newest first, soft-deleted workspaces dropped.
// The dashboard query reuses it inside a $facet.
func WorkspaceRoleStages(limit int64) []bson.D {
	stages := []bson.D{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "workspaces",
			"localField":   "workspace_id",
			"foreignField": "_id",
			"as":           "ws",
		}}},
		{{Key: "$unwind", Value: "$ws"}},
		{{Key: "$match", Value: bson.M{"ws.deleted_at": bson.M{"$exists": false}}}},
	}
	if limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: limit}})
	}
	stages = append(stages, bson.D{{Key: "$project", Value: bson.M{
		"_id":       0,
		"workspace": "$ws",
		"membership": bson.M{
			"_id":          "$_id",
			"workspace_id": "$workspace_id",
			"user_id":      "$user_id",
			"role":         "$role",
			"created_at":   "$created_at",
		},
	}}})
	return stages
}
