package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/synccircle/internal/persistence"
)

func TestCircleRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads and renames circles", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)

		circle := persistence.Circle{ID: "abcd1234", Name: "Study Group", CreatedAt: baseTime}
		if err := storage.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle returned error: %v", err)
		}

		got, err := storage.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle returned error: %v", err)
		}
		if got.Name != "Study Group" || !got.CreatedAt.Equal(baseTime) || !got.UpdatedAt.Equal(baseTime) {
			t.Fatalf("unexpected circle %+v", got)
		}

		got.Name = "Book Club"
		got.UpdatedAt = baseTime.Add(1)
		if err := storage.UpdateCircle(ctx, got); err != nil {
			t.Fatalf("UpdateCircle returned error: %v", err)
		}
		renamed, err := storage.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle after update returned error: %v", err)
		}
		if renamed.Name != "Book Club" || !renamed.UpdatedAt.Equal(baseTime.Add(1)) {
			t.Fatalf("unexpected renamed circle %+v", renamed)
		}
	})

	t.Run("rejects duplicates and reports missing circles", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)
		circle := persistence.Circle{ID: "dup", Name: "One"}
		if err := storage.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle returned error: %v", err)
		}
		if err := storage.CreateCircle(ctx, circle); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := storage.GetCircle(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := storage.UpdateCircle(ctx, persistence.Circle{ID: "nope", Name: "x"}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
		if err := storage.CreateCircle(ctx, persistence.Circle{ID: "blank", Name: "  "}); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation for blank name, got %v", err)
		}
	})

	t.Run("creates circle and host atomically", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := newTestStorage(t)

		host := persistence.Member{ID: "host", CircleID: "c1", Name: "Host", Active: true, Timezone: "Asia/Tokyo"}
		if err := storage.CreateCircleWithHost(ctx, persistence.Circle{ID: "c1", Name: "Circle"}, host); err != nil {
			t.Fatalf("CreateCircleWithHost returned error: %v", err)
		}
		if _, err := storage.GetMember(ctx, "host"); err != nil {
			t.Fatalf("expected host member, got %v", err)
		}

		// A host that fails to insert must roll the circle back.
		broken := persistence.Member{ID: "host", CircleID: "c2", Name: "Again", Timezone: "UTC"}
		if err := storage.CreateCircleWithHost(ctx, persistence.Circle{ID: "c2", Name: "Other"}, broken); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := storage.GetCircle(ctx, "c2"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected circle c2 to be rolled back, got %v", err)
		}
	})
}
