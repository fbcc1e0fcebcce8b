package models_test

import (
	"testing"

	"github.com/dalemusser/onepager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func row(slug string) models.WorkspaceRole {
	return models.WorkspaceRole{Workspace: models.Workspace{ID: primitive.NewObjectID(), Slug: slug}}
}

func TestCurrentWorkspace(t *testing.T) {
	preferred := row("preferred")
	newest := row("newest")
	older := row("older")

	tests := []struct {
		name      string
		preferred []models.WorkspaceRole
		newest    []models.WorkspaceRole
		want      string
	}{
		{"preferred wins", []models.WorkspaceRole{preferred}, []models.WorkspaceRole{newest, older}, "preferred"},
		{"falls back to newest", nil, []models.WorkspaceRole{newest, older}, "newest"},
		{"preferred without list", []models.WorkspaceRole{preferred}, nil, "preferred"},
		{"no memberships", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := models.CurrentWorkspace(tt.preferred, tt.newest)
			if tt.want == "" {
				if got != nil {
					t.Errorf("CurrentWorkspace() = %q, want nil", got.Workspace.Slug)
				}
				return
			}
			if got == nil {
				t.Fatalf("CurrentWorkspace() = nil, want %q", tt.want)
			}
			if got.Workspace.Slug != tt.want {
				t.Errorf("CurrentWorkspace() = %q, want %q", got.Workspace.Slug, tt.want)
			}
		})
	}
}

func TestCurrentWorkspace_ReturnsCopy(t *testing.T) {
	rows := []models.WorkspaceRole{row("w1")}
	got := models.CurrentWorkspace(nil, rows)
	got.Workspace.Slug = "changed"
	if rows[0].Workspace.Slug != "w1" {
		t.Errorf("caller's slice was modified: %q", rows[0].Workspace.Slug)
	}
}
