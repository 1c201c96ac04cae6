package scheduler

import "github.com/example/synccircle/internal/layout"

// Conflict describes an existing event that the candidate would overlap on the
// owner's own calendar.
type Conflict struct {
	WithEventID string
	Title       string
	Day         int
	// Minutes is the length of the shared interval.
	Minutes int
}

// DetectConflicts returns the events of the candidate's owner that share its
// weekday, overlap its [StartTime, StartTime+Duration) interval and whose
// validity windows intersect. The candidate itself is ignored when present in
// existing. Conflicts are advisory; callers decide whether to reject.
func DetectConflicts(existing []layout.ScheduleEvent, candidate layout.ScheduleEvent) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if other.ID == candidate.ID && candidate.ID != "" {
			continue
		}
		if other.UserID != candidate.UserID || other.Day != candidate.Day {
			continue
		}
		if !windowsIntersect(other, candidate) {
			continue
		}
		shared := overlapMinutes(
			Interval{Start: other.StartTime, End: other.EndTime()},
			Interval{Start: candidate.StartTime, End: candidate.EndTime()},
		)
		if shared <= 0 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithEventID: other.ID,
			Title:       other.Title,
			Day:         other.Day,
			Minutes:     shared,
		})
	}
	return conflicts
}

func windowsIntersect(a, b layout.ScheduleEvent) bool {
	aStart, err := layout.ParseDate(a.StartDate)
	if err != nil {
		return false
	}
	aEnd, err := layout.ParseDate(a.EndDate)
	if err != nil {
		return false
	}
	bStart, err := layout.ParseDate(b.StartDate)
	if err != nil {
		return false
	}
	bEnd, err := layout.ParseDate(b.EndDate)
	if err != nil {
		return false
	}
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

func overlapMinutes(a, b Interval) int {
	start := max(a.Start, b.Start)
	end := min(a.End, b.End)
	if end <= start {
		return 0
	}
	return end - start
}
