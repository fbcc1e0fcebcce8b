// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/onepager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("profile not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Update lists the profile fields a user may change. Nil fields are left
// untouched; an empty AvatarURL clears the avatar.
type Update struct {
	FullName  *string
	AvatarURL *string
	Phone     *string
}

// Fields names the fields u sets, in bson spelling.
func (u Update) Fields() []string {
	var out []string
	if u.FullName != nil {
		out = append(out, "full_name")
	}
	if u.AvatarURL != nil {
		out = append(out, "avatar_url")
	}
	if u.Phone != nil {
		out = append(out, "phone")
	}
	return out
}

// Create inserts a profile. Profiles are normally written by the sign-up
// trigger; Create exists for seeding and tests.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.FullNameCI = text.Fold(p.FullName)
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// GetByID returns the profile for a user. Soft-deleted profiles are
// reported as ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// Update applies u to the profile.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) error {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if u.FullName != nil {
		set["full_name"] = *u.FullName
		set["full_name_ci"] = text.Fold(*u.FullName)
	}
	if u.AvatarURL != nil {
		set["avatar_url"] = *u.AvatarURL
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
