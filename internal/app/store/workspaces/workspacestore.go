// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateSlug = errors.New("a workspace with this slug already exists")
	ErrNotFound      = errors.New("workspace not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// NotDeleted is the filter every workspace read applies.
func NotDeleted() bson.M {
	return bson.M{"deleted_at": bson.M{"$exists": false}}
}

// Create inserts a new workspace. Workspaces are created by the signup flow;
// Create exists for seeding and tests.
func (s *Store) Create(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	now := time.Now().UTC()
	ws.ID = primitive.NewObjectID()
	ws.NameCI = text.Fold(ws.Name)
	if ws.PlanID == "" {
		ws.PlanID = models.PlanFree
	}
	ws.CreatedAt = now
	ws.UpdatedAt = now
	ws.DeletedAt = nil
	_, err := s.c.InsertOne(ctx, ws)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Workspace{}, ErrDuplicateSlug
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a live workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	filter := NotDeleted()
	filter["_id"] = id
	return s.findOne(ctx, filter)
}

// GetBySlug retrieves a live workspace by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Workspace, error) {
	filter := NotDeleted()
	filter["slug"] = slug
	return s.findOne(ctx, filter)
}

// SoftDelete marks a workspace deleted. Memberships are left in place; every
// membership query joins on live workspaces only.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := NotDeleted()
	filter["_id"] = id
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"deleted_at": now,
		"updated_at": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, filter).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}
