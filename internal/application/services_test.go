package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/persistence/sqlite"
	"github.com/example/synccircle/internal/testfixtures"
)

func newServices(t *testing.T, opts ...testfixtures.ServiceFactoryOption) (testfixtures.Services, *testfixtures.SQLiteHarness, *testfixtures.Clock) {
	t.Helper()

	clock := testfixtures.NewClock(time.Time{})
	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory(append([]testfixtures.ServiceFactoryOption{testfixtures.WithClock(clock)}, opts...)...)
	return factory.NewServices(harness.Storage), harness, clock
}

func requireValidation(t *testing.T, err error, field, message string) {
	t.Helper()

	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := vErr.FieldErrors[field]; got != message {
		t.Fatalf("expected %q on %s, got %v", message, field, vErr.FieldErrors)
	}
}

func TestCircleService(t *testing.T) {
	t.Parallel()

	t.Run("creates a circle with its host", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()

		created, err := services.Circles.CreateCircle(ctx, application.CreateCircleParams{
			Name:         "  Family  ",
			HostName:     "",
			HostTimezone: "Asia/Tokyo",
		})
		if err != nil {
			t.Fatalf("CreateCircle returned error: %v", err)
		}
		if created.Circle.Name != "Family" {
			t.Fatalf("expected trimmed name, got %q", created.Circle.Name)
		}
		if created.Host.Name != "Host" || created.Host.Color != application.Palette[0] || !created.Host.Active {
			t.Fatalf("unexpected host %+v", created.Host)
		}

		members, err := harness.Storage.ListMembersByCircle(ctx, created.Circle.ID)
		if err != nil {
			t.Fatalf("ListMembersByCircle returned error: %v", err)
		}
		if len(members) != 1 || members[0].Timezone != "Asia/Tokyo" {
			t.Fatalf("expected persisted host, got %+v", members)
		}
	})

	t.Run("validates name and host timezone", func(t *testing.T) {
		t.Parallel()

		services, _, _ := newServices(t)
		_, err := services.Circles.CreateCircle(context.Background(), application.CreateCircleParams{
			Name:         "   ",
			HostTimezone: "Mars/Olympus",
		})
		requireValidation(t, err, "name", application.MsgNameRequired)
		requireValidation(t, err, "host_timezone", application.MsgTimezoneInvalid)
	})

	t.Run("renames an existing circle", func(t *testing.T) {
		t.Parallel()

		services, _, clock := newServices(t)
		ctx := context.Background()
		created, err := services.Circles.CreateCircle(ctx, application.CreateCircleParams{Name: "Old"})
		if err != nil {
			t.Fatalf("CreateCircle returned error: %v", err)
		}

		clock.Advance(time.Hour)
		renamed, err := services.Circles.RenameCircle(ctx, created.Circle.ID, " New ")
		if err != nil {
			t.Fatalf("RenameCircle returned error: %v", err)
		}
		if renamed.Name != "New" || !renamed.UpdatedAt.After(created.Circle.UpdatedAt) {
			t.Fatalf("unexpected renamed circle %+v", renamed)
		}

		if _, err := services.Circles.RenameCircle(ctx, "missing", "Name"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := services.Circles.GetCircle(ctx, "missing"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMemberService(t *testing.T) {
	t.Parallel()

	t.Run("cycles palette colors by member count", func(t *testing.T) {
		t.Parallel()

		services, _, _ := newServices(t)
		ctx := context.Background()
		created, err := services.Circles.CreateCircle(ctx, application.CreateCircleParams{Name: "Team"})
		if err != nil {
			t.Fatalf("CreateCircle returned error: %v", err)
		}

		for i := 1; i <= len(application.Palette); i++ {
			member, err := services.Members.AddMember(ctx, application.AddMemberParams{CircleID: created.Circle.ID, Name: "Member"})
			if err != nil {
				t.Fatalf("AddMember returned error: %v", err)
			}
			want := application.Palette[i%len(application.Palette)]
			if member.Color != want {
				t.Fatalf("member %d: expected color %s, got %s", i, want, member.Color)
			}
			if member.Timezone != "UTC" || !member.Active {
				t.Fatalf("expected active member in default zone, got %+v", member)
			}
		}
	})

	t.Run("rejects members of unknown circles", func(t *testing.T) {
		t.Parallel()

		services, _, _ := newServices(t)
		_, err := services.Members.AddMember(context.Background(), application.AddMemberParams{CircleID: "missing", Name: "Ann"})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("applies partial updates", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)
		aliceID := sample.Members[0].ID

		color := "#00aaff"
		timezone := "Europe/Berlin"
		updated, err := services.Members.UpdateMember(ctx, application.UpdateMemberParams{
			CircleID: "c1",
			MemberID: aliceID,
			Color:    &color,
			Timezone: &timezone,
		})
		if err != nil {
			t.Fatalf("UpdateMember returned error: %v", err)
		}
		if updated.Name != "Alice" || updated.Color != "#00AAFF" || updated.Timezone != "Europe/Berlin" {
			t.Fatalf("unexpected member %+v", updated)
		}

		_, err = services.Members.UpdateMember(ctx, application.UpdateMemberParams{CircleID: "c1", MemberID: aliceID})
		requireValidation(t, err, "body", application.MsgNothingToUpdate)

		bad := "red"
		_, err = services.Members.UpdateMember(ctx, application.UpdateMemberParams{CircleID: "c1", MemberID: aliceID, Color: &bad})
		requireValidation(t, err, "color", application.MsgColorInvalid)

		_, err = services.Members.UpdateMember(ctx, application.UpdateMemberParams{CircleID: "other", MemberID: aliceID, Color: &color})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for foreign circle, got %v", err)
		}
	})

	t.Run("toggles one member or all members", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)

		toggled, err := services.Members.ToggleMember(ctx, "c1", sample.Members[0].ID)
		if err != nil {
			t.Fatalf("ToggleMember returned error: %v", err)
		}
		if toggled.Active {
			t.Fatalf("expected alice to be hidden")
		}

		changed, err := services.Members.SetAllActive(ctx, "c1", true)
		if err != nil {
			t.Fatalf("SetAllActive returned error: %v", err)
		}
		if changed != 2 {
			t.Fatalf("expected alice and carol to change, got %d", changed)
		}

		if _, err := services.Members.SetAllActive(ctx, "missing", true); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("deleting a member removes its events", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)

		if err := services.Members.DeleteMember(ctx, "c1", sample.Members[1].ID); err != nil {
			t.Fatalf("DeleteMember returned error: %v", err)
		}
		members, err := services.Members.ListMembers(ctx, "c1")
		if err != nil {
			t.Fatalf("ListMembers returned error: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("expected 2 members left, got %d", len(members))
		}
		events, err := services.Events.ListEvents(ctx, "c1")
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		for _, event := range events {
			if event.UserID == sample.Members[1].ID {
				t.Fatalf("expected bob's events to be removed, found %+v", event)
			}
		}
	})
}

func TestEventService(t *testing.T) {
	t.Parallel()

	t.Run("fills defaults and reports conflicts", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)
		aliceID := sample.Members[0].ID

		result, err := services.Events.CreateEvent(ctx, application.CreateEventParams{
			CircleID: "c1",
			Input: application.EventInput{
				UserID:    aliceID,
				Title:     "   ",
				Day:       0,
				StartTime: 10 * 60,
				Duration:  60,
			},
		})
		if err != nil {
			t.Fatalf("CreateEvent returned error: %v", err)
		}
		if result.Event.Title != application.DefaultEventTitle {
			t.Fatalf("expected default title, got %q", result.Event.Title)
		}
		if result.Event.StartDate != "2024-01-15" || result.Event.EndDate != "2024-12-31" {
			t.Fatalf("expected default window, got %s..%s", result.Event.StartDate, result.Event.EndDate)
		}
		if len(result.Conflicts) != 1 || result.Conflicts[0].WithEventID != "c1-standup" || result.Conflicts[0].Minutes != 30 {
			t.Fatalf("expected one 30 minute conflict with standup, got %+v", result.Conflicts)
		}
	})

	t.Run("validates invariants", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)

		_, err := services.Events.CreateEvent(ctx, application.CreateEventParams{
			CircleID: "c1",
			Input: application.EventInput{
				UserID:    sample.Members[0].ID,
				Day:       7,
				StartTime: 1440,
				Duration:  0,
				StartDate: "2024-02-01",
				EndDate:   "2024-01-01",
			},
		})
		requireValidation(t, err, "day", application.MsgDayOutOfRange)
		requireValidation(t, err, "start_time", application.MsgStartTimeOutOfRange)
		requireValidation(t, err, "duration", application.MsgDurationPositive)
		requireValidation(t, err, "end_date", application.MsgDateOrder)

		_, err = services.Events.CreateEvent(ctx, application.CreateEventParams{
			CircleID: "c1",
			Input:    application.EventInput{UserID: "stranger", Duration: 30},
		})
		requireValidation(t, err, "user_id", application.MsgMemberUnknown)

		_, err = services.Events.CreateEvent(ctx, application.CreateEventParams{
			CircleID: "c1",
			Input:    application.EventInput{Duration: 30},
		})
		requireValidation(t, err, "user_id", application.MsgMemberRequired)
	})

	t.Run("batch import sets the owner timezone", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)
		bobID := sample.Members[1].ID

		created, err := services.Events.BatchAddEvents(ctx, application.BatchAddEventsParams{
			CircleID: "c1",
			OwnerID:  bobID,
			Timezone: "America/Chicago",
			Events: []application.EventInput{
				{Title: "Math", Day: 0, StartTime: 8 * 60, Duration: 50},
				{Title: "Physics", Day: 2, StartTime: 10 * 60, Duration: 50},
			},
		})
		if err != nil {
			t.Fatalf("BatchAddEvents returned error: %v", err)
		}
		if len(created) != 2 || created[0].UserID != bobID {
			t.Fatalf("unexpected events %+v", created)
		}
		bob, err := harness.Storage.GetMember(ctx, bobID)
		if err != nil {
			t.Fatalf("GetMember returned error: %v", err)
		}
		if bob.Timezone != "America/Chicago" {
			t.Fatalf("expected owner timezone to change, got %q", bob.Timezone)
		}
	})

	t.Run("batch import is rejected as a whole", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)

		_, err := services.Events.BatchAddEvents(ctx, application.BatchAddEventsParams{
			CircleID: "c1",
			OwnerID:  sample.Members[1].ID,
			Events: []application.EventInput{
				{Title: "Ok", Day: 0, StartTime: 60, Duration: 30},
				{Title: "Bad", Day: 9, StartTime: 60, Duration: 30},
			},
		})
		requireValidation(t, err, "events[1].day", application.MsgDayOutOfRange)

		events, err := services.Events.ListEvents(ctx, "c1")
		if err != nil {
			t.Fatalf("ListEvents returned error: %v", err)
		}
		if len(events) != len(sample.Events) {
			t.Fatalf("expected no events to be added, got %d", len(events))
		}

		_, err = services.Events.BatchAddEvents(ctx, application.BatchAddEventsParams{CircleID: "c1", OwnerID: sample.Members[1].ID})
		requireValidation(t, err, "events", application.MsgEventsRequired)
	})

	t.Run("updates and deletes within the circle", func(t *testing.T) {
		t.Parallel()

		services, harness, _ := newServices(t)
		ctx := context.Background()
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)

		start := 11 * 60
		title := "Late standup"
		result, err := services.Events.UpdateEvent(ctx, application.UpdateEventParams{
			CircleID:  "c1",
			EventID:   "c1-standup",
			Title:     &title,
			StartTime: &start,
		})
		if err != nil {
			t.Fatalf("UpdateEvent returned error: %v", err)
		}
		if result.Event.StartTime != start || result.Event.Title != title || result.Event.Duration != 90 {
			t.Fatalf("unexpected event %+v", result.Event)
		}
		if len(result.Conflicts) != 0 {
			t.Fatalf("expected the event not to conflict with itself, got %+v", result.Conflicts)
		}

		if err := services.Events.DeleteEvent(ctx, "other", "c1-standup"); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for foreign circle, got %v", err)
		}
		if err := services.Events.DeleteEvent(ctx, "c1", "c1-standup"); err != nil {
			t.Fatalf("DeleteEvent returned error: %v", err)
		}
		if _, err := services.Events.UpdateEvent(ctx, application.UpdateEventParams{CircleID: "c1", EventID: "c1-standup", Title: &title}); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

type failingEventStore struct {
	*sqlite.Storage
	err error
}

func (f failingEventStore) CreateEventsForOwner(context.Context, persistence.Member, []persistence.Event) error {
	return f.err
}

func TestBatchAddEventsLeavesNothingHalfWritten(t *testing.T) {
	t.Parallel()

	assertUntouched := func(t *testing.T, harness *testfixtures.SQLiteHarness, sample testfixtures.SampleCircle) {
		t.Helper()

		ctx := context.Background()
		events, err := harness.Storage.ListEventsByCircle(ctx, "c1")
		if err != nil {
			t.Fatalf("ListEventsByCircle returned error: %v", err)
		}
		if len(events) != len(sample.Events) {
			t.Fatalf("expected %d stored events, got %d", len(sample.Events), len(events))
		}
		bob, err := harness.Storage.GetMember(ctx, sample.Members[1].ID)
		if err != nil {
			t.Fatalf("GetMember returned error: %v", err)
		}
		if bob.Timezone != sample.Members[1].Timezone {
			t.Fatalf("expected owner timezone %q to survive, got %q", sample.Members[1].Timezone, bob.Timezone)
		}
	}

	t.Run("storage failure while switching the owner zone", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)
		diskFull := errors.New("disk full")
		events := application.NewEventService(harness.Storage, harness.Storage, failingEventStore{Storage: harness.Storage, err: diskFull}, application.EventServiceOptions{})

		created, err := events.BatchAddEvents(context.Background(), application.BatchAddEventsParams{
			CircleID: "c1",
			OwnerID:  sample.Members[1].ID,
			Timezone: "Asia/Tokyo",
			Events:   []application.EventInput{{Title: "Math", Day: 0, StartTime: 8 * 60, Duration: 50}},
		})
		if !errors.Is(err, diskFull) {
			t.Fatalf("expected storage error, got %v", err)
		}
		if created != nil {
			t.Fatalf("expected no events on failure, got %+v", created)
		}
		assertUntouched(t, harness, sample)
	})

	t.Run("failed insert rolls back the owner zone", func(t *testing.T) {
		t.Parallel()

		harness := testfixtures.NewSQLiteHarness(t)
		sample := testfixtures.NewSampleCircle("c1")
		harness.Seed(t, sample)
		ids := []string{"fresh-1", "c1-standup"}
		next := 0
		events := application.NewEventService(harness.Storage, harness.Storage, harness.Storage, application.EventServiceOptions{
			IDGenerator: func() string {
				id := ids[next%len(ids)]
				next++
				return id
			},
		})

		_, err := events.BatchAddEvents(context.Background(), application.BatchAddEventsParams{
			CircleID: "c1",
			OwnerID:  sample.Members[1].ID,
			Timezone: "Asia/Tokyo",
			Events: []application.EventInput{
				{Title: "Math", Day: 0, StartTime: 8 * 60, Duration: 50},
				{Title: "Physics", Day: 2, StartTime: 10 * 60, Duration: 50},
			},
		})
		if !errors.Is(err, application.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists for the clashing id, got %v", err)
		}
		assertUntouched(t, harness, sample)
	})
}
