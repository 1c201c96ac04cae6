// Package layout computes the weekly calendar grid shared by a circle: which
// recurring events are visible on a date, where they sit in the viewer's clock
// and which side-by-side lane each one occupies.
//
// Every function in this package is pure. Inputs are never retained or mutated,
// so callers may invoke the pipeline on every data change without coordination.
package layout

import (
	"strings"
	"time"
)

// MinutesPerDay is the length of a local day in the grid.
const MinutesPerDay = 24 * 60

// DateLayout is the calendar-date format used for validity windows.
const DateLayout = "2006-01-02"

// User is a circle member as seen by the layout engine.
type User struct {
	ID       string
	Name     string
	Color    string
	Active   bool
	Timezone string
	Avatar   string
}

// ScheduleEvent is a weekly recurring block owned by a user.
//
// Day is 0 for Monday through 6 for Sunday. StartTime counts minutes since
// midnight in the owner's timezone. StartDate and EndDate bound the validity
// window inclusively.
type ScheduleEvent struct {
	ID        string
	UserID    string
	Title     string
	Day       int
	StartTime int
	Duration  int
	StartDate string
	EndDate   string
}

// EndTime returns the minute at which the event stops, exclusive.
func (e ScheduleEvent) EndTime() int {
	return e.StartTime + e.Duration
}

// ParseDate parses a YYYY-MM-DD value. Anything after the date part (a time of
// day, an offset) is ignored so that noisy inputs compare by calendar date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}

// DateOnly strips the time of day from t, keeping the calendar date as read in
// t's own location. The result is expressed in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekdayIndex converts a time.Weekday into the Monday-first index used by
// ScheduleEvent.Day.
func WeekdayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}
