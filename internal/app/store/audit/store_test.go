package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/onepager/internal/app/store/audit"
	"github.com/dalemusser/onepager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLog_SetsIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	ws := primitive.NewObjectID()
	if err := store.Log(ctx, audit.Event{WorkspaceID: &ws, EventType: audit.EventSiteArchived}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.ListByWorkspace(ctx, ws, audit.Position{}, 0)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be set")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestListByWorkspace_NewestFirstAndScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	ws, other := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	for i, typ := range []string{audit.EventInvitationCreated, audit.EventMemberRoleChanged, audit.EventMemberRemoved} {
		if err := store.Log(ctx, audit.Event{WorkspaceID: &ws, EventType: typ, Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if err := store.Log(ctx, audit.Event{WorkspaceID: &other, EventType: audit.EventSiteArchived}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.ListByWorkspace(ctx, ws, audit.Position{}, 0)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventType != audit.EventMemberRemoved || events[2].EventType != audit.EventInvitationCreated {
		t.Errorf("unexpected order: %s, %s, %s", events[0].EventType, events[1].EventType, events[2].EventType)
	}

	older, err := store.ListByWorkspace(ctx, ws, audit.Position{Timestamp: events[0].Timestamp}, 1)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(older) != 1 || older[0].EventType != audit.EventMemberRoleChanged {
		t.Errorf("expected the role change before the removal, got %+v", older)
	}
}

func TestListByWorkspace_PagesThroughTies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	ws := primitive.NewObjectID()
	at := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, audit.Event{WorkspaceID: &ws, EventType: audit.EventMemberRemoved, Timestamp: at}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	first, err := store.ListByWorkspace(ctx, ws, audit.Position{}, 2)
	if err != nil || len(first) != 2 {
		t.Fatalf("first page: %v, %d events", err, len(first))
	}

	pos, ok := audit.DecodePosition(first[1].Position().Encode())
	if !ok {
		t.Fatal("cursor did not round-trip")
	}
	second, err := store.ListByWorkspace(ctx, ws, pos, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 event on the second page, got %d", len(second))
	}
	for _, ev := range first {
		if ev.ID == second[0].ID {
			t.Error("second page repeated an event")
		}
	}
}

func TestDecodePosition_Rejects(t *testing.T) {
	if _, ok := audit.DecodePosition("not a cursor"); ok {
		t.Error("expected garbage to be rejected")
	}
}

func TestPurgeBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	ws := primitive.NewObjectID()
	now := time.Now().UTC()
	_ = store.Log(ctx, audit.Event{WorkspaceID: &ws, EventType: audit.EventSiteArchived, Timestamp: now.Add(-100 * 24 * time.Hour)})
	_ = store.Log(ctx, audit.Event{WorkspaceID: &ws, EventType: audit.EventSiteArchived, Timestamp: now})

	n, err := store.PurgeBefore(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}

	left, _ := store.ListByWorkspace(ctx, ws, audit.Position{}, 0)
	if len(left) != 1 {
		t.Errorf("expected 1 event left, got %d", len(left))
	}
}
