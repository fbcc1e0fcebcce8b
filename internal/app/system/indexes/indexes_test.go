package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/onepager/internal/app/system/indexes"
	"github.com/dalemusser/onepager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, ctx context.Context, coll *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"workspaces":   {"uniq_workspace_slug", "idx_workspace_nameci__id"},
		"memberships":  {"uniq_membership_workspace_user", "idx_membership_user_createdat"},
		"sites":        {"uniq_site_workspace_slug", "idx_site_workspace_status_updatedat"},
		"audit_events": {"idx_audit_workspace_timestamp", "idx_audit_timestamp"},
		"invitations":  {"uniq_invitation_token", "uniq_invitation_workspace_email_pending", "idx_invitation_status_expiresat"},
	}
	for coll, want := range expected {
		got := indexNames(t, ctx, db.Collection(coll))
		for _, name := range want {
			if !got[name] {
				t.Errorf("expected index %q on %s", name, coll)
			}
		}
	}
}

func TestEnsureAll_PendingInvitationUniquenessIsPartial(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	wsID := primitive.NewObjectID()
	coll := db.Collection("invitations")
	docs := []bson.M{
		{"workspace_id": wsID, "email_ci": "a@example.com", "status": "revoked", "token": "t1"},
		{"workspace_id": wsID, "email_ci": "a@example.com", "status": "revoked", "token": "t2"},
		{"workspace_id": wsID, "email_ci": "a@example.com", "status": "pending", "token": "t3"},
	}
	for _, d := range docs {
		if _, err := coll.InsertOne(ctx, d); err != nil {
			t.Fatalf("insert %v failed: %v", d["token"], err)
		}
	}

	_, err := coll.InsertOne(ctx, bson.M{"workspace_id": wsID, "email_ci": "a@example.com", "status": "pending", "token": "t4"})
	if err == nil {
		t.Error("expected second pending invitation for the same email to be rejected")
	}
}
