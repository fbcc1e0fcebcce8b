// internal/app/store/sites/sitestore.go
package sitestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// listLimit bounds the dashboard list; the builder paginates separately.
const listLimit = 200

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateSlug = errors.New("a site with this slug already exists in the workspace")
	ErrNotFound      = errors.New("site not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sites")}
}

// Create inserts a site. Sites are created by the builder; Create exists for
// seeding and tests.
func (s *Store) Create(ctx context.Context, site models.Site) (models.Site, error) {
	now := time.Now().UTC()
	site.ID = primitive.NewObjectID()
	if site.Status == "" {
		site.Status = models.SiteDraft
	}
	site.CreatedAt = now
	site.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, site); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Site{}, ErrDuplicateSlug
		}
		return models.Site{}, err
	}
	return site, nil
}

// ListByWorkspace returns the workspace's non-archived sites, most recently
// updated first.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Site, error) {
	filter := bson.M{
		"workspace_id": workspaceID,
		"status":       bson.M{"$ne": models.SiteArchived},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(listLimit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	sites := []models.Site{}
	if err := cur.All(ctx, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// CountActive returns the number of non-archived sites in a workspace.
func (s *Store) CountActive(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"workspace_id": workspaceID,
		"status":       bson.M{"$ne": models.SiteArchived},
	})
}

// Archive hides a site from the dashboard. The site must belong to the
// workspace and not already be archived.
func (s *Store) Archive(ctx context.Context, workspaceID, siteID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":          siteID,
			"workspace_id": workspaceID,
			"status":       bson.M{"$ne": models.SiteArchived},
		},
		bson.M{"$set": bson.M{
			"status":     models.SiteArchived,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
