package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the application-level identity of a user. It shares its _id
// with the user record owned by the auth provider and is created by the
// sign-up trigger, not by this service.
type Profile struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	AvatarURL  string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Deleted    bool               `bson:"deleted,omitempty" json:"deleted,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
