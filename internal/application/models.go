package application

import (
	"time"

	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/scheduler"
)

// Palette is the sequence of member colors. A new member takes the color at
// the position of the circle's current member count.
var Palette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#F7B801",
	"#A66CFF",
	"#3DDC97",
	"#FF8FAB",
	"#5C7AEA",
}

// DefaultEventTitle replaces a blank event title.
const DefaultEventTitle = "Untitled Event"

const (
	maxNameLength  = 100
	maxTitleLength = 200
)

// CreateCircleParams wraps the data required to start a circle.
type CreateCircleParams struct {
	Name         string
	HostName     string
	HostTimezone string
}

// CircleWithHost is a newly created circle and its first member.
type CircleWithHost struct {
	Circle persistence.Circle
	Host   persistence.Member
}

// AddMemberParams wraps the data required to add a member to a circle.
type AddMemberParams struct {
	CircleID string
	Name     string
	Timezone string
	Avatar   string
}

// UpdateMemberParams carries a partial member update. Nil fields are left
// unchanged.
type UpdateMemberParams struct {
	CircleID string
	MemberID string
	Name     *string
	Color    *string
	Timezone *string
	Avatar   *string
}

// EventInput captures caller provided event fields. Blank dates are filled in
// by the service.
type EventInput struct {
	UserID    string
	Title     string
	Day       int
	StartTime int
	Duration  int
	StartDate string
	EndDate   string
}

// CreateEventParams wraps the data required to create a single event.
type CreateEventParams struct {
	CircleID string
	Input    EventInput
}

// BatchAddEventsParams imports a timetable for one member. Timezone, when
// set, becomes the owner's zone.
type BatchAddEventsParams struct {
	CircleID string
	OwnerID  string
	Timezone string
	Events   []EventInput
}

// UpdateEventParams carries a partial event update. Nil fields are left
// unchanged.
type UpdateEventParams struct {
	CircleID  string
	EventID   string
	Title     *string
	Day       *int
	StartTime *int
	Duration  *int
	StartDate *string
	EndDate   *string
}

// EventResult is a stored event plus advisory overlaps with the owner's other
// events.
type EventResult struct {
	Event     persistence.Event
	Conflicts []scheduler.Conflict
}

// WeekViewParams selects the week and the zone it is drawn in. An empty
// ViewerTimezone uses the service default.
type WeekViewParams struct {
	CircleID       string
	Date           time.Time
	ViewerTimezone string
}

// FreeSlotsParams asks for the common free time of a circle's active members.
type FreeSlotsParams struct {
	WeekViewParams
	MinDuration int
}

// FreeSlots is the result of a free time search.
type FreeSlots struct {
	WeekStart      time.Time
	ViewerTimezone string
	Slots          []scheduler.Slot
}

// OccurrencesParams bounds an occurrence listing. Timezone selects the zone of
// the reported instants and defaults to UTC.
type OccurrencesParams struct {
	CircleID string
	From     time.Time
	To       time.Time
	Timezone string
}

// CalendarExport is a serialized iCalendar feed.
type CalendarExport struct {
	Body  []byte
	ETag  string
	Stamp time.Time
}

func toLayoutUser(member persistence.Member) layout.User {
	return layout.User{
		ID:       member.ID,
		Name:     member.Name,
		Color:    member.Color,
		Active:   member.Active,
		Timezone: member.Timezone,
		Avatar:   member.Avatar,
	}
}

func toLayoutUsers(members []persistence.Member) []layout.User {
	users := make([]layout.User, len(members))
	for i, member := range members {
		users[i] = toLayoutUser(member)
	}
	return users
}

func toLayoutEvent(event persistence.Event) layout.ScheduleEvent {
	return layout.ScheduleEvent{
		ID:        event.ID,
		UserID:    event.UserID,
		Title:     event.Title,
		Day:       event.Day,
		StartTime: event.StartTime,
		Duration:  event.Duration,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
	}
}

func toLayoutEvents(events []persistence.Event) []layout.ScheduleEvent {
	out := make([]layout.ScheduleEvent, len(events))
	for i, event := range events {
		out[i] = toLayoutEvent(event)
	}
	return out
}
