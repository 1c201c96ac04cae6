// Package testfixtures builds deterministic circles, members and events for
// tests across the module.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/persistence"
)

var (
	memberCounter uint64
	eventCounter  uint64
)

// referenceTime is a Monday noon in UTC, outside any DST transition.
var referenceTime = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Member fixtures -----------------------------

// MemberFixture is a member record with deterministic defaults.
type MemberFixture struct {
	ID        string
	CircleID  string
	Name      string
	Color     string
	Active    bool
	Timezone  string
	Avatar    string
	CreatedAt time.Time
}

// MemberOption configures a MemberFixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns an active UTC member with optional overrides.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		ID:        fmt.Sprintf("member-%03d", idx),
		CircleID:  "circle-1",
		Name:      fmt.Sprintf("Member %03d", idx),
		Color:     "#FF6B6B",
		Active:    true,
		Timezone:  "UTC",
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID overrides the member identifier.
func WithMemberID(id string) MemberOption {
	return func(f *MemberFixture) { f.ID = id }
}

// WithMemberCircle places the member in circleID.
func WithMemberCircle(circleID string) MemberOption {
	return func(f *MemberFixture) { f.CircleID = circleID }
}

// WithMemberName overrides the display name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.Name = name }
}

// WithMemberTimezone overrides the IANA zone.
func WithMemberTimezone(timezone string) MemberOption {
	return func(f *MemberFixture) { f.Timezone = timezone }
}

// WithMemberColor overrides the color.
func WithMemberColor(color string) MemberOption {
	return func(f *MemberFixture) { f.Color = color }
}

// Inactive hides the member's events from views.
func Inactive() MemberOption {
	return func(f *MemberFixture) { f.Active = false }
}

// Persistence converts the fixture into a storable member.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		ID:        f.ID,
		CircleID:  f.CircleID,
		Name:      f.Name,
		Color:     f.Color,
		Active:    f.Active,
		Timezone:  f.Timezone,
		Avatar:    f.Avatar,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// User converts the fixture into the layout view of a member.
func (f MemberFixture) User() layout.User {
	return layout.User{
		ID:       f.ID,
		Name:     f.Name,
		Color:    f.Color,
		Active:   f.Active,
		Timezone: f.Timezone,
		Avatar:   f.Avatar,
	}
}

// ----------------------------- Event fixtures ------------------------------

// EventFixture is a weekly event with deterministic defaults.
type EventFixture struct {
	ID        string
	CircleID  string
	UserID    string
	Title     string
	Day       int
	StartTime int
	Duration  int
	StartDate string
	EndDate   string
}

// EventOption configures an EventFixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a Monday 09:00-10:00 event valid through 2024.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		CircleID:  "circle-1",
		UserID:    "member-001",
		Title:     fmt.Sprintf("Event %03d", idx),
		Day:       0,
		StartTime: 9 * 60,
		Duration:  60,
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the event identifier.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithEventOwner assigns the event to userID in circleID.
func WithEventOwner(circleID, userID string) EventOption {
	return func(f *EventFixture) {
		f.CircleID = circleID
		f.UserID = userID
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) { f.Title = title }
}

// WithEventSlot sets the weekday, start minute and duration.
func WithEventSlot(day, startTime, duration int) EventOption {
	return func(f *EventFixture) {
		f.Day = day
		f.StartTime = startTime
		f.Duration = duration
	}
}

// WithEventWindow sets the inclusive validity window.
func WithEventWindow(startDate, endDate string) EventOption {
	return func(f *EventFixture) {
		f.StartDate = startDate
		f.EndDate = endDate
	}
}

// Persistence converts the fixture into a storable event.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		CircleID:  f.CircleID,
		UserID:    f.UserID,
		Title:     f.Title,
		Day:       f.Day,
		StartTime: f.StartTime,
		Duration:  f.Duration,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// ScheduleEvent converts the fixture into the layout view of an event.
func (f EventFixture) ScheduleEvent() layout.ScheduleEvent {
	return layout.ScheduleEvent{
		ID:        f.ID,
		UserID:    f.UserID,
		Title:     f.Title,
		Day:       f.Day,
		StartTime: f.StartTime,
		Duration:  f.Duration,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
	}
}

// ----------------------------- Offsets --------------------------------------

// FixedOffsets is an offset provider with constant offsets, in minutes east
// of UTC, keyed by zone name. Unknown zones return an error.
type FixedOffsets map[string]int

// OffsetMinutesAt implements layout.TimeZoneOffsetProvider.
func (f FixedOffsets) OffsetMinutesAt(timezoneID string, _ time.Time) (int, error) {
	offset, ok := f[timezoneID]
	if !ok {
		return 0, fmt.Errorf("testfixtures: no offset for %q", timezoneID)
	}
	return offset, nil
}

// ----------------------------- Sample circle --------------------------------

// SampleCircle is a small circle spread over three zones.
type SampleCircle struct {
	Circle  persistence.Circle
	Members []persistence.Member
	Events  []persistence.Event
}

// NewSampleCircle returns circleID with three members:
//
//	alice  Asia/Tokyo        Monday 09:00-10:30 "Standup"
//	bob    Europe/London     Monday 00:30-01:30 "Gym"
//	carol  America/New_York  inactive, Tuesday 18:00-19:00 "Piano"
//
// Member IDs are circleID-prefixed so several samples can share a database.
func NewSampleCircle(circleID string) SampleCircle {
	alice := NewMemberFixture(WithMemberID(circleID+"-alice"), WithMemberCircle(circleID), WithMemberName("Alice"), WithMemberTimezone("Asia/Tokyo"))
	bob := NewMemberFixture(WithMemberID(circleID+"-bob"), WithMemberCircle(circleID), WithMemberName("Bob"), WithMemberTimezone("Europe/London"), WithMemberColor("#4ECDC4"))
	carol := NewMemberFixture(WithMemberID(circleID+"-carol"), WithMemberCircle(circleID), WithMemberName("Carol"), WithMemberTimezone("America/New_York"), WithMemberColor("#45B7D1"), Inactive())

	return SampleCircle{
		Circle: persistence.Circle{ID: circleID, Name: "Sample " + circleID, CreatedAt: referenceTime, UpdatedAt: referenceTime},
		Members: []persistence.Member{
			alice.Persistence(),
			bob.Persistence(),
			carol.Persistence(),
		},
		Events: []persistence.Event{
			NewEventFixture(WithEventID(circleID+"-standup"), WithEventOwner(circleID, alice.ID), WithEventTitle("Standup"), WithEventSlot(0, 9*60, 90)).Persistence(),
			NewEventFixture(WithEventID(circleID+"-gym"), WithEventOwner(circleID, bob.ID), WithEventTitle("Gym"), WithEventSlot(0, 30, 60)).Persistence(),
			NewEventFixture(WithEventID(circleID+"-piano"), WithEventOwner(circleID, carol.ID), WithEventTitle("Piano"), WithEventSlot(1, 18*60, 60)).Persistence(),
		},
	}
}
