package recurrence

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/example/synccircle/internal/layout"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return loc
}

func TestEngineExpandWeekly(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	event := layout.ScheduleEvent{
		ID: "event-1", UserID: "alice", Title: "Standup",
		Day: 2, StartTime: 9 * 60, Duration: 30,
		StartDate: "2024-01-01", EndDate: "2024-01-31",
	}

	got, err := engine.Expand(event, time.UTC,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}

	want := []string{"2024-01-03", "2024-01-10", "2024-01-17", "2024-01-24", "2024-01-31"}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i, occurrence := range got {
		if occurrence.Start.Format("2006-01-02") != want[i] {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], occurrence.Start)
		}
		if occurrence.Start.Weekday() != time.Wednesday {
			t.Fatalf("occurrence %d: expected Wednesday, got %s", i, occurrence.Start.Weekday())
		}
		if occurrence.End.Sub(occurrence.Start) != 30*time.Minute {
			t.Fatalf("occurrence %d: unexpected duration %s", i, occurrence.End.Sub(occurrence.Start))
		}
		if occurrence.EventID != "event-1" || occurrence.UserID != "alice" || occurrence.Title != "Standup" {
			t.Fatalf("occurrence %d: unexpected identity %+v", i, occurrence)
		}
	}
}

func TestEngineExpandClipsToRange(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	event := layout.ScheduleEvent{ID: "e", Day: 0, StartTime: 600, Duration: 60, StartDate: "2024-01-01", EndDate: "2024-12-31"}

	got, err := engine.Expand(event, time.UTC,
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].Start != time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected first start %s", got[0].Start)
	}
}

func TestEngineExpandKeepsOwnerWallClockAcrossDST(t *testing.T) {
	t.Parallel()

	newYork := mustLoad(t, "America/New_York")
	engine := NewEngine(time.UTC)
	event := layout.ScheduleEvent{ID: "e", Day: 0, StartTime: 9 * 60, Duration: 60, StartDate: "2024-03-01", EndDate: "2024-03-31"}

	got, err := engine.Expand(event, newYork,
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].Start.Hour() != 14 {
		t.Fatalf("expected 14:00 UTC before DST, got %s", got[0].Start)
	}
	if got[1].Start.Hour() != 13 {
		t.Fatalf("expected 13:00 UTC after DST, got %s", got[1].Start)
	}
	if got[1].Start.Location() != time.UTC {
		t.Fatalf("expected occurrences in engine location, got %s", got[1].Start.Location())
	}
}

func TestEngineExpandValidation(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	valid := layout.ScheduleEvent{ID: "e", Day: 0, StartTime: 600, Duration: 60, StartDate: "2024-01-01", EndDate: "2024-12-31"}

	cases := []struct {
		name   string
		mutate func(*layout.ScheduleEvent)
		from   time.Time
		to     time.Time
		want   error
	}{
		{name: "bad day", mutate: func(e *layout.ScheduleEvent) { e.Day = 7 }, from: from, to: to, want: ErrInvalidDay},
		{name: "zero duration", mutate: func(e *layout.ScheduleEvent) { e.Duration = 0 }, from: from, to: to, want: ErrInvalidDuration},
		{name: "unparseable date", mutate: func(e *layout.ScheduleEvent) { e.StartDate = "soon" }, from: from, to: to, want: ErrInvalidDates},
		{name: "inverted dates", mutate: func(e *layout.ScheduleEvent) { e.EndDate = "2023-12-31" }, from: from, to: to, want: ErrInvalidDates},
		{name: "unbounded window", mutate: func(*layout.ScheduleEvent) {}, from: from, to: time.Time{}, want: ErrInvalidWindow},
		{name: "inverted window", mutate: func(*layout.ScheduleEvent) {}, from: to, to: from, want: ErrInvalidWindow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			event := valid
			tc.mutate(&event)
			_, err := engine.Expand(event, time.UTC, tc.from, tc.to)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEngineExpandAllMergesAndReportsSkipped(t *testing.T) {
	t.Parallel()

	tokyo := mustLoad(t, "Asia/Tokyo")
	engine := NewEngine(time.UTC)
	events := []layout.ScheduleEvent{
		{ID: "late", UserID: "utc", Day: 0, StartTime: 600, Duration: 60, StartDate: "2024-01-01", EndDate: "2024-01-07"},
		{ID: "early", UserID: "tokyo", Day: 0, StartTime: 600, Duration: 60, StartDate: "2024-01-01", EndDate: "2024-01-07"},
		{ID: "broken", UserID: "utc", Day: 0, StartTime: 600, Duration: -5, StartDate: "2024-01-01", EndDate: "2024-01-07"},
	}
	locate := func(userID string) *time.Location {
		if userID == "tokyo" {
			return tokyo
		}
		return nil
	}

	got, skipped, err := engine.ExpandAll(events, locate,
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExpandAll returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].EventID != "early" || got[1].EventID != "late" {
		t.Fatalf("expected tokyo occurrence first, got %s then %s", got[0].EventID, got[1].EventID)
	}
	if !errors.Is(skipped["broken"], ErrInvalidDuration) {
		t.Fatalf("expected broken event to be reported, got %v", skipped)
	}
}

func TestEngineRuleCoversValidityWindow(t *testing.T) {
	t.Parallel()

	rule, err := NewEngine(nil).Rule(layout.ScheduleEvent{Day: 4, StartTime: 0, Duration: 15, StartDate: "2024-01-01", EndDate: "2024-01-31"}, time.UTC)
	if err != nil {
		t.Fatalf("Rule returned error: %v", err)
	}
	got := rule.All()
	if len(got) != 4 {
		t.Fatalf("expected 4 Fridays in January 2024, got %d", len(got))
	}
}

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(time.UTC)
	event := layout.ScheduleEvent{ID: "e", Day: 2, StartTime: 540, Duration: 90, StartDate: "2024-01-01", EndDate: "2026-12-31"}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Expand(event, time.UTC, from, to); err != nil {
			b.Fatalf("Expand returned error: %v", err)
		}
	}
}
