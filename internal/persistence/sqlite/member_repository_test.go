package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/synccircle/internal/persistence"
)

func TestMemberRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads, updates and lists members", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)
		seedCircle(t, storage, "c1", "alice", "bob")

		alice, err := storage.GetMember(ctx, "alice")
		if err != nil {
			t.Fatalf("GetMember returned error: %v", err)
		}
		if !alice.Active || alice.Timezone != "UTC" || alice.CircleID != "c1" {
			t.Fatalf("unexpected member %+v", alice)
		}

		alice.Name = "Alice"
		alice.Timezone = "Europe/Berlin"
		alice.Avatar = "https://example.com/a.png"
		alice.Active = false
		if err := storage.UpdateMember(ctx, alice); err != nil {
			t.Fatalf("UpdateMember returned error: %v", err)
		}

		members, err := storage.ListMembersByCircle(ctx, "c1")
		if err != nil {
			t.Fatalf("ListMembersByCircle returned error: %v", err)
		}
		if len(members) != 2 || members[0].ID != "alice" {
			t.Fatalf("unexpected members %+v", members)
		}
		if members[0].Name != "Alice" || members[0].Active || members[0].Timezone != "Europe/Berlin" || members[0].Avatar == "" {
			t.Fatalf("update not persisted: %+v", members[0])
		}

		empty, err := storage.ListMembersByCircle(ctx, "other")
		if err != nil {
			t.Fatalf("ListMembersByCircle for unknown circle returned error: %v", err)
		}
		if empty == nil || len(empty) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", empty)
		}
	})

	t.Run("requires an existing circle", func(t *testing.T) {
		t.Parallel()

		storage := newTestStorage(t)
		err := storage.CreateMember(context.Background(), persistence.Member{ID: "m", CircleID: "ghost", Name: "M", Timezone: "UTC"})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("toggles every member of a circle", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)
		seedCircle(t, storage, "c1", "alice", "bob", "carol")
		seedCircle(t, storage, "c2", "dave")

		changed, err := storage.SetMembersActive(ctx, "c1", false)
		if err != nil {
			t.Fatalf("SetMembersActive returned error: %v", err)
		}
		if changed != 3 {
			t.Fatalf("expected 3 members changed, got %d", changed)
		}
		changed, err = storage.SetMembersActive(ctx, "c1", false)
		if err != nil || changed != 0 {
			t.Fatalf("expected no-op second call, got %d, %v", changed, err)
		}

		dave, err := storage.GetMember(ctx, "dave")
		if err != nil || !dave.Active {
			t.Fatalf("other circle must be untouched: %+v, %v", dave, err)
		}
	})

	t.Run("deleting a member cascades to its events", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)
		seedCircle(t, storage, "c1", "alice", "bob")
		if err := storage.CreateEvents(ctx, []persistence.Event{
			newEvent("a1", "c1", "alice", 0, 540),
			newEvent("a2", "c1", "alice", 1, 540),
			newEvent("b1", "c1", "bob", 0, 540),
		}); err != nil {
			t.Fatalf("CreateEvents returned error: %v", err)
		}

		if err := storage.DeleteMember(ctx, "alice"); err != nil {
			t.Fatalf("DeleteMember returned error: %v", err)
		}
		if err := storage.DeleteMember(ctx, "alice"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}

		events, err := storage.ListEventsByCircle(ctx, "c1")
		if err != nil {
			t.Fatalf("ListEventsByCircle returned error: %v", err)
		}
		if len(events) != 1 || events[0].ID != "b1" {
			t.Fatalf("expected only bob's event to remain, got %+v", events)
		}
	})
}
