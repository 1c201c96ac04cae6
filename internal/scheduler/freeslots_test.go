package scheduler

import (
	"slices"
	"testing"

	"github.com/example/synccircle/internal/layout"
)

func TestFindFreeSlotsEmptyWeek(t *testing.T) {
	t.Parallel()

	got := FindFreeSlots(nil, Options{})
	if len(got) != 7 {
		t.Fatalf("expected one slot per day, got %+v", got)
	}
	for day, slot := range got {
		want := Slot{Day: day, Start: DefaultDayStart, End: DefaultDayEnd}
		if slot != want {
			t.Fatalf("day %d: expected %+v, got %+v", day, want, slot)
		}
	}
}

func TestFindFreeSlotsUnionOfMembers(t *testing.T) {
	t.Parallel()

	busy := []Interval{
		{Day: 0, Start: 9 * 60, End: 11 * 60},
		{Day: 0, Start: 10 * 60, End: 12 * 60},
		{Day: 0, Start: 12*60 + 30, End: 14 * 60},
		{Day: 0, Start: 15 * 60, End: 23 * 60},
	}

	want := []Slot{{Day: 0, Start: 14 * 60, End: 15 * 60}}
	if got := filterDay(FindFreeSlots(busy, Options{}), 0); !slices.Equal(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFindFreeSlotsRespectsMinDuration(t *testing.T) {
	t.Parallel()

	busy := []Interval{
		{Day: 3, Start: 9 * 60, End: 10 * 60},
		{Day: 3, Start: 10*60 + 45, End: 22 * 60},
	}

	if got := filterDay(FindFreeSlots(busy, Options{}), 3); len(got) != 0 {
		t.Fatalf("expected the 45 minute gap to be dropped, got %+v", got)
	}
	want := []Slot{{Day: 3, Start: 10 * 60, End: 10*60 + 45}}
	if got := filterDay(FindFreeSlots(busy, Options{MinDuration: 30}), 3); !slices.Equal(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFindFreeSlotsCustomBounds(t *testing.T) {
	t.Parallel()

	got := filterDay(FindFreeSlots(nil, Options{DayStart: 8 * 60, DayEnd: 12 * 60, MinDuration: 240}), 5)
	want := []Slot{{Day: 5, Start: 480, End: 720}}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if got[0].Duration() != 240 {
		t.Fatalf("expected 240 minutes, got %d", got[0].Duration())
	}
}

func TestNormalizeSplitsAcrossMidnight(t *testing.T) {
	t.Parallel()

	got := Normalize([]Interval{
		{Day: 0, Start: -60, End: 60},
		{Day: 6, Start: 1400, End: 1500},
		{Day: 2, Start: 600, End: 600},
	})
	want := []Interval{
		{Day: 6, Start: 1380, End: 1440},
		{Day: 0, Start: 0, End: 60},
		{Day: 6, Start: 1400, End: 1440},
		{Day: 0, Start: 0, End: 60},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestBusyFromWeek(t *testing.T) {
	t.Parallel()

	var week layout.Week
	for i := range week.Days {
		week.Days[i].Index = i
	}
	week.Days[2].Blocks = []layout.Block{{DisplayStart: 420, Duration: 60}}

	want := []Interval{{Day: 2, Start: 420, End: 480}}
	if got := BusyFromWeek(week); !slices.Equal(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func filterDay(slots []Slot, day int) []Slot {
	var out []Slot
	for _, slot := range slots {
		if slot.Day == day {
			out = append(out, slot)
		}
	}
	return out
}
