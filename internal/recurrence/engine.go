package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/synccircle/internal/layout"
)

// ErrInvalidWindow indicates the expansion window is unbounded or inverted.
var ErrInvalidWindow = errors.New("recurrence: expansion window requires start before end")

// ErrInvalidDuration indicates the event duration is not positive.
var ErrInvalidDuration = errors.New("recurrence: event duration must be positive")

// ErrInvalidDay indicates the event weekday is outside Monday..Sunday.
var ErrInvalidDay = errors.New("recurrence: event day must be between 0 and 6")

// ErrInvalidDates indicates the validity window cannot be parsed.
var ErrInvalidDates = errors.New("recurrence: event validity window is invalid")

var weekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Occurrence is one concrete instance of a weekly event.
type Occurrence struct {
	EventID string
	UserID  string
	Title   string
	Start   time.Time
	End     time.Time
}

// LocationFunc resolves the zone an event's owner lives in.
type LocationFunc func(userID string) *time.Location

// Engine expands weekly events into absolute occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that reports occurrence times in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Rule builds the WEEKLY rule behind event. DTSTART is the event's first
// valid date at StartTime in ownerLoc and UNTIL is the last second of its
// EndDate, so each occurrence carries the wall clock of its own date.
func (e *Engine) Rule(event layout.ScheduleEvent, ownerLoc *time.Location) (*rrule.RRule, error) {
	if event.Day < 0 || event.Day > 6 {
		return nil, ErrInvalidDay
	}
	if event.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if ownerLoc == nil {
		ownerLoc = time.UTC
	}

	startDate, err := layout.ParseDate(event.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date: %v", ErrInvalidDates, err)
	}
	endDate, err := layout.ParseDate(event.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date: %v", ErrInvalidDates, err)
	}
	if endDate.Before(startDate) {
		return nil, ErrInvalidDates
	}

	dtstart := time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		event.StartTime/60, event.StartTime%60, 0, 0, ownerLoc)
	until := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, ownerLoc)

	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Until:     until,
		Wkst:      rrule.MO,
		Byweekday: []rrule.Weekday{weekdays[event.Day]},
	})
}

// Expand returns the occurrences of event that start within
// [rangeStart, rangeEnd], in chronological order.
func (e *Engine) Expand(event layout.ScheduleEvent, ownerLoc *time.Location, rangeStart, rangeEnd time.Time) ([]Occurrence, error) {
	if rangeStart.IsZero() || rangeEnd.IsZero() || rangeEnd.Before(rangeStart) {
		return nil, ErrInvalidWindow
	}
	rule, err := e.Rule(event, ownerLoc)
	if err != nil {
		return nil, err
	}

	loc := e.loc()
	duration := time.Duration(event.Duration) * time.Minute
	starts := rule.Between(rangeStart, rangeEnd, true)
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		occurrences = append(occurrences, Occurrence{
			EventID: event.ID,
			UserID:  event.UserID,
			Title:   event.Title,
			Start:   start.In(loc),
			End:     start.Add(duration).In(loc),
		})
	}
	return occurrences, nil
}

// ExpandAll expands every event and merges the results by start time. Events
// that cannot be expanded are skipped and reported through the returned map,
// keyed by event ID.
func (e *Engine) ExpandAll(events []layout.ScheduleEvent, locate LocationFunc, rangeStart, rangeEnd time.Time) ([]Occurrence, map[string]error, error) {
	if rangeStart.IsZero() || rangeEnd.IsZero() || rangeEnd.Before(rangeStart) {
		return nil, nil, ErrInvalidWindow
	}

	var skipped map[string]error
	all := make([]Occurrence, 0, len(events))
	for _, event := range events {
		var ownerLoc *time.Location
		if locate != nil {
			ownerLoc = locate(event.UserID)
		}
		occurrences, err := e.Expand(event, ownerLoc, rangeStart, rangeEnd)
		if err != nil {
			if skipped == nil {
				skipped = make(map[string]error)
			}
			skipped[event.ID] = err
			continue
		}
		all = append(all, occurrences...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Start.Equal(all[j].Start) {
			return all[i].Start.Before(all[j].Start)
		}
		return all[i].EventID < all[j].EventID
	})
	return all, skipped, nil
}

func (e *Engine) loc() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}
