// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Workspace event types
const (
	EventInvitationCreated = "invitation_created"
	EventInvitationRevoked = "invitation_revoked"
	EventInvitationExpired = "invitation_expired"
	EventMemberRoleChanged = "member_role_changed"
	EventMemberRemoved     = "member_removed"
	EventMemberLeft        = "member_left"
	EventSiteArchived      = "site_archived"
	EventWorkspaceDeleted  = "workspace_deleted"
	EventWorkspaceSwitched = "workspace_switched"
	EventProfileUpdated    = "profile_updated"
)

// DefaultLimit bounds a listing when the caller passes none.
const DefaultLimit = 100

// Event records one change a user made inside a workspace.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
	WorkspaceID *primitive.ObjectID `bson:"workspace_id,omitempty" json:"workspace_id,omitempty"`

	EventType string `bson:"event_type" json:"event_type"`

	// Who
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`   // who performed the action
	TargetID *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"` // affected user, site or invitation

	// Context
	IP        string `bson:"ip,omitempty" json:"-"`
	UserAgent string `bson:"user_agent,omitempty" json:"-"`
	RequestID string `bson:"request_id,omitempty" json:"-"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// Position marks a place in a newest-first listing. The zero Position is
// the start of the trail.
type Position struct {
	Timestamp time.Time
	ID        primitive.ObjectID
}

// Position returns the place just after e in a listing.
func (e Event) Position() Position {
	return Position{Timestamp: e.Timestamp, ID: e.ID}
}

// Encode returns p as an opaque cursor token.
func (p Position) Encode() string {
	return wafflemongo.EncodeCursor(p.Timestamp.UTC().Format(time.RFC3339Nano), p.ID)
}

// DecodePosition parses a token made by Position.Encode.
func DecodePosition(token string) (Position, bool) {
	c, ok := wafflemongo.DecodeCursor(token)
	if !ok {
		return Position{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return Position{}, false
	}
	return Position{Timestamp: ts, ID: c.ID}, true
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// ListByWorkspace returns a workspace's events, newest first, starting
// after `after`. Ties on timestamp are broken by _id. A Position with only
// a timestamp lists events strictly older than it.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, after Position, limit int64) ([]Event, error) {
	query := bson.M{"workspace_id": workspaceID}
	if !after.Timestamp.IsZero() {
		query["$or"] = bson.A{
			bson.M{"timestamp": bson.M{"$lt": after.Timestamp}},
			bson.M{"timestamp": after.Timestamp, "_id": bson.M{"$lt": after.ID}},
		}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// PurgeBefore deletes events older than cutoff and returns how many went.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
