package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Site statuses.
const (
	SiteDraft     = "draft"
	SitePublished = "published"
	SiteArchived  = "archived"
)

// Site is a property one-pager built from a listing. Page content lives in
// the builder; the dashboard only needs the summary fields below.
type Site struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Slug        string             `bson:"slug" json:"slug"`
	Title       string             `bson:"title" json:"title"`
	SourceURL   string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	CoverURL    string             `bson:"cover_url,omitempty" json:"cover_url,omitempty"`
	Status      string             `bson:"status" json:"status"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
