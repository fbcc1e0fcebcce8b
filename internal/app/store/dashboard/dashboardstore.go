// internal/app/store/dashboard/dashboardstore.go
package dashboardstore

import (
	"context"

	membershipstore "github.com/dalemusser/onepager/internal/app/store/memberships"
	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Data is everything the dashboard needs for one user, fetched in a single
// round trip.
type Data struct {
	Profile *models.Profile // nil when the profile is missing or soft-deleted
	// Current is the preferred workspace when the user is still a member of
	// it, otherwise the most recently joined one. Nil with no memberships.
	Current    *models.WorkspaceRole
	Workspaces []models.WorkspaceRole // newest membership first; never nil
}

type Store struct {
	memberships *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{memberships: db.Collection("memberships")}
}

type dashboardRow struct {
	All       []models.WorkspaceRole `bson:"all"`
	Preferred []models.WorkspaceRole `bson:"preferred"`
	Profile   []models.Profile       `bson:"profile"`
}

// GetDashboardData runs one aggregation over memberships: a $facet builds the
// workspace list (and the preferred row when preferredID is set) and an
// uncorrelated $lookup pulls the profile. $facet always emits one document,
// so a user with no memberships still gets their profile back.
func (s *Store) GetDashboardData(ctx context.Context, userID, preferredID primitive.ObjectID) (Data, error) {
	facets := bson.M{
		"all": membershipstore.WorkspaceRoleStages(0),
	}
	if !preferredID.IsZero() {
		preferred := []bson.D{{{Key: "$match", Value: bson.M{"workspace_id": preferredID}}}}
		facets["preferred"] = append(preferred, membershipstore.WorkspaceRoleStages(1)...)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$facet", Value: facets}},
		{{Key: "$lookup", Value: bson.M{
			"from": "profiles",
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"_id": userID, "deleted": bson.M{"$ne": true}}},
				bson.M{"$limit": 1},
			},
			"as": "profile",
		}}},
	}

	cur, err := s.memberships.Aggregate(ctx, pipeline)
	if err != nil {
		return Data{}, err
	}
	defer cur.Close(ctx)

	var row dashboardRow
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return Data{}, err
		}
	}
	if err := cur.Err(); err != nil {
		return Data{}, err
	}

	data := Data{Workspaces: row.All}
	if data.Workspaces == nil {
		data.Workspaces = []models.WorkspaceRole{}
	}
	if len(row.Profile) > 0 {
		p := row.Profile[0]
		data.Profile = &p
	}
	data.Current = models.CurrentWorkspace(row.Preferred, data.Workspaces)
	return data, nil
}
