package application

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/synccircle/internal/layout"
)

// Validation messages. HTTP translates them by value.
const (
	MsgNameRequired        = "name is required"
	MsgNameTooLong         = "name must be at most 100 characters"
	MsgTitleTooLong        = "title must be at most 200 characters"
	MsgTimezoneInvalid     = "timezone is invalid"
	MsgColorInvalid        = "color must be #RRGGBB"
	MsgDayOutOfRange       = "day must be between 0 and 6"
	MsgStartTimeOutOfRange = "start time must be between 0 and 1439"
	MsgDurationPositive    = "duration must be positive"
	MsgDurationTooLong     = "duration must not exceed one day"
	MsgDateInvalid         = "date must be YYYY-MM-DD"
	MsgDateOrder           = "start date must not be after end date"
	MsgMemberRequired      = "member is required"
	MsgMemberUnknown       = "member does not exist"
	MsgEventsRequired      = "at least one event is required"
	MsgNothingToUpdate     = "at least one field must be provided"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateName(field, name string, vErr *ValidationError) {
	switch {
	case name == "":
		vErr.add(field, MsgNameRequired)
	case utf8.RuneCountInString(name) > maxNameLength:
		vErr.add(field, MsgNameTooLong)
	}
}

func validateTimezone(field, timezone string, vErr *ValidationError) {
	if !ValidTimezone(timezone) {
		vErr.add(field, MsgTimezoneInvalid)
	}
}

// ValidTimezone reports whether timezone names a zone in the IANA database.
// "Local" is accepted.
func ValidTimezone(timezone string) bool {
	if strings.TrimSpace(timezone) == "" {
		return false
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}

func validateColor(field, color string, vErr *ValidationError) {
	if !colorPattern.MatchString(color) {
		vErr.add(field, MsgColorInvalid)
	}
}

// validateEventFields enforces the stored event invariants.
func validateEventFields(title string, day, startTime, duration int, startDate, endDate string) *ValidationError {
	vErr := &ValidationError{}

	if utf8.RuneCountInString(title) > maxTitleLength {
		vErr.add("title", MsgTitleTooLong)
	}
	if day < 0 || day > 6 {
		vErr.add("day", MsgDayOutOfRange)
	}
	if startTime < 0 || startTime >= layout.MinutesPerDay {
		vErr.add("start_time", MsgStartTimeOutOfRange)
	}
	switch {
	case duration <= 0:
		vErr.add("duration", MsgDurationPositive)
	case duration > layout.MinutesPerDay:
		vErr.add("duration", MsgDurationTooLong)
	}

	start, startErr := time.Parse(layout.DateLayout, startDate)
	if startErr != nil {
		vErr.add("start_date", MsgDateInvalid)
	}
	end, endErr := time.Parse(layout.DateLayout, endDate)
	if endErr != nil {
		vErr.add("end_date", MsgDateInvalid)
	}
	if startErr == nil && endErr == nil && start.After(end) {
		vErr.add("end_date", MsgDateOrder)
	}
	return vErr
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
