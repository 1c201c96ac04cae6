package scheduler

import (
	"sort"

	"github.com/example/synccircle/internal/layout"
)

// Default search bounds for common free time, in viewer-local minutes.
const (
	DefaultMinDuration = 60
	DefaultDayStart    = 9 * 60
	DefaultDayEnd      = 22 * 60
)

// Interval is a half-open [Start, End) span of minutes on weekday Day
// (0 = Monday). Start and End may fall outside a single day; Normalize splits
// such spans onto the neighbouring weekdays.
type Interval struct {
	Day   int
	Start int
	End   int
}

// Slot is a gap in which every active member is free.
type Slot struct {
	Day   int
	Start int
	End   int
}

// Duration returns the slot length in minutes.
func (s Slot) Duration() int {
	return s.End - s.Start
}

// Options bounds the free-slot search. Zero values take the defaults.
type Options struct {
	MinDuration int
	DayStart    int
	DayEnd      int
}

func (o Options) normalized() Options {
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinDuration
	}
	if o.DayStart <= 0 && o.DayEnd <= 0 {
		o.DayStart, o.DayEnd = DefaultDayStart, DefaultDayEnd
	}
	if o.DayStart < 0 {
		o.DayStart = 0
	}
	if o.DayEnd <= 0 || o.DayEnd > layout.MinutesPerDay {
		o.DayEnd = layout.MinutesPerDay
	}
	return o
}

// BusyFromWeek collects the drawn blocks of a laid-out week as busy intervals
// on the viewer's clock.
func BusyFromWeek(week layout.Week) []Interval {
	var busy []Interval
	for _, day := range week.Days {
		for _, block := range day.Blocks {
			busy = append(busy, Interval{
				Day:   day.Index,
				Start: block.DisplayStart,
				End:   block.DisplayStart + block.Duration,
			})
		}
	}
	return busy
}

// Normalize folds intervals that spill past midnight onto the adjacent
// weekdays, wrapping Sunday to Monday, and drops empty spans.
func Normalize(intervals []Interval) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, in := range intervals {
		if in.End <= in.Start {
			continue
		}
		day := in.Day
		start, end := in.Start, in.End
		for start < 0 {
			start += layout.MinutesPerDay
			end += layout.MinutesPerDay
			day--
		}
		for start >= layout.MinutesPerDay {
			start -= layout.MinutesPerDay
			end -= layout.MinutesPerDay
			day++
		}
		for end > 0 {
			segmentEnd := min(end, layout.MinutesPerDay)
			out = append(out, Interval{Day: wrapDay(day), Start: start, End: segmentEnd})
			end -= layout.MinutesPerDay
			start = 0
			day++
		}
	}
	return out
}

func wrapDay(day int) int {
	return ((day % 7) + 7) % 7
}

// FindFreeSlots returns, for each weekday in order, the gaps inside
// [DayStart, DayEnd) that no busy interval touches and that last at least
// MinDuration minutes.
func FindFreeSlots(busy []Interval, opts Options) []Slot {
	opts = opts.normalized()

	var perDay [7][]Interval
	for _, in := range Normalize(busy) {
		perDay[in.Day] = append(perDay[in.Day], in)
	}

	slots := make([]Slot, 0)
	for day := range perDay {
		merged := merge(perDay[day])
		cursor := opts.DayStart
		for _, in := range merged {
			if in.End <= cursor {
				continue
			}
			if in.Start >= opts.DayEnd {
				break
			}
			if in.Start-cursor >= opts.MinDuration {
				slots = append(slots, Slot{Day: day, Start: cursor, End: in.Start})
			}
			cursor = max(cursor, in.End)
		}
		if opts.DayEnd-cursor >= opts.MinDuration {
			slots = append(slots, Slot{Day: day, Start: cursor, End: opts.DayEnd})
		}
	}
	return slots
}

// merge sorts intervals and unions the overlapping ones. Touching intervals
// stay separate; a zero-length gap never yields a slot.
func merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []Interval{sorted[0]}
	for _, in := range sorted[1:] {
		last := &merged[len(merged)-1]
		if in.Start < last.End {
			last.End = max(last.End, in.End)
			continue
		}
		merged = append(merged, in)
	}
	return merged
}
