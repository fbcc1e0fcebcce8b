// internal/app/store/plans/planstore.go
package planstore

import (
	"context"
	"errors"

	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("plan not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("plans")}
}

// GetByID returns a plan by its identifier.
func (s *Store) GetByID(ctx context.Context, id string) (models.Plan, error) {
	var p models.Plan
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Plan{}, ErrNotFound
		}
		return models.Plan{}, err
	}
	return p, nil
}

// List returns every plan ordered by id.
func (s *Store) List(ctx context.Context) ([]models.Plan, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var plans []models.Plan
	if err := cur.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// EnsureDefaults inserts any of plans that do not exist yet. Existing plans
// are never overwritten. It returns the number inserted.
func (s *Store) EnsureDefaults(ctx context.Context, plans []models.Plan) (int, error) {
	inserted := 0
	for _, p := range plans {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": p.ID},
			bson.M{"$setOnInsert": bson.M{
				"name":      p.Name,
				"features":  p.Features,
				"max_users": p.MaxUsers,
				"max_sites": p.MaxSites,
			}},
			options.Update().SetUpsert(true))
		if err != nil {
			return inserted, err
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}
