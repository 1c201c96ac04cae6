// Package ical renders a circle's expanded schedule as an iCalendar feed.
package ical

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"golang.org/x/crypto/blake2b"

	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/recurrence"
)

// ProductID identifies the generator in PRODID.
const ProductID = "-//SyncCircle//Weekly Calendar//EN"

// UIDDomain is appended to every VEVENT UID.
const UIDDomain = "synccircle"

// Feed carries everything rendered into one VCALENDAR.
type Feed struct {
	CircleID   string
	CircleName string
	// Timezone is advertised through X-WR-TIMEZONE. Times are always written in UTC.
	Timezone string
	// Stamp becomes DTSTAMP on every event; a fixed value keeps output stable.
	Stamp       time.Time
	Members     []layout.User
	Occurrences []recurrence.Occurrence
}

// ExportCircle serializes feed as a PUBLISH calendar with one VEVENT per
// occurrence. Occurrences whose owner is not among Members are skipped.
func ExportCircle(feed Feed) []byte {
	owners := make(map[string]layout.User, len(feed.Members))
	for _, member := range feed.Members {
		owners[member.ID] = member
	}

	cal := ics.NewCalendarFor("SyncCircle")
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetName(feed.CircleName)
	cal.SetXWRCalName(feed.CircleName)
	cal.SetXWRCalDesc(fmt.Sprintf("Shared weekly schedule of circle %s", feed.CircleID))
	if feed.Timezone != "" {
		cal.SetXWRTimezone(feed.Timezone)
	}

	stamp := feed.Stamp.UTC()
	for _, occurrence := range feed.Occurrences {
		owner, ok := owners[occurrence.UserID]
		if !ok {
			continue
		}
		event := cal.AddEvent(OccurrenceUID(occurrence))
		event.SetDtStampTime(stamp)
		event.SetStartAt(occurrence.Start)
		event.SetEndAt(occurrence.End)
		event.SetSummary(Summary(occurrence.Title, owner.Name))
		event.SetDescription(fmt.Sprintf("%s (%s)", owner.Name, owner.Timezone))
		if owner.Color != "" {
			event.SetColor(owner.Color)
		}
		event.AddCategory(owner.Name)
	}

	return []byte(cal.Serialize())
}

// OccurrenceUID is stable for a given event and occurrence date.
func OccurrenceUID(occurrence recurrence.Occurrence) string {
	return fmt.Sprintf("%s-%s@%s", occurrence.EventID, occurrence.Start.UTC().Format("20060102"), UIDDomain)
}

// Summary formats an event title with its owner, falling back to the title.
func Summary(title, ownerName string) string {
	if strings.TrimSpace(ownerName) == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, ownerName)
}

// ETag returns a strong entity tag for body.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// MatchesETag reports whether an If-None-Match header value names etag.
func MatchesETag(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
