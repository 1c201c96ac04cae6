package layout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TimeZoneOffsetProvider reports the UTC offset of a named zone at an instant,
// in minutes east of UTC.
type TimeZoneOffsetProvider interface {
	OffsetMinutesAt(timezoneID string, instant time.Time) (int, error)
}

// ZoneDBProvider resolves offsets from the IANA database shipped with the
// runtime. Loaded locations are cached; it is safe for concurrent use.
type ZoneDBProvider struct {
	locations sync.Map
}

// NewZoneDBProvider returns a provider backed by time.LoadLocation.
func NewZoneDBProvider() *ZoneDBProvider {
	return &ZoneDBProvider{}
}

// Location loads and caches the named zone. "Local" maps to the process zone;
// a blank name is rejected rather than read as UTC.
func (p *ZoneDBProvider) Location(timezoneID string) (*time.Location, error) {
	if strings.TrimSpace(timezoneID) == "" {
		return nil, fmt.Errorf("layout: unknown timezone %q: %w", timezoneID, errBlankTimezone)
	}
	if cached, ok := p.locations.Load(timezoneID); ok {
		return cached.(*time.Location), nil
	}
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return nil, fmt.Errorf("layout: unknown timezone %q: %w", timezoneID, err)
	}
	p.locations.Store(timezoneID, loc)
	return loc, nil
}

// OffsetMinutesAt implements TimeZoneOffsetProvider.
func (p *ZoneDBProvider) OffsetMinutesAt(timezoneID string, instant time.Time) (int, error) {
	loc, err := p.Location(timezoneID)
	if err != nil {
		return 0, err
	}
	return OffsetMinutes(instant, loc), nil
}

// OffsetMinutes returns loc's offset from UTC at instant, in minutes. It is the
// difference between the wall clock read in loc and the wall clock read in UTC.
func OffsetMinutes(instant time.Time, loc *time.Location) int {
	local := instant.In(loc)
	utc := instant.UTC()
	wallLocal := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, time.UTC)
	wallUTC := time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), utc.Minute(), 0, 0, time.UTC)
	return int(wallLocal.Sub(wallUTC) / time.Minute)
}

// Resolver converts owner-local start minutes into the viewer's clock.
type Resolver struct {
	// Offsets supplies zone offsets. Nil means a shared ZoneDBProvider.
	Offsets TimeZoneOffsetProvider
	// ViewerTimezone is the zone the grid is drawn in. Empty means "Local".
	ViewerTimezone string
	// Now is the reference clock. Nil means time.Now.
	Now func() time.Time
	// Logger receives debug records for zones that could not be resolved.
	Logger *slog.Logger
}

var (
	defaultProvider  = NewZoneDBProvider()
	errBlankTimezone = errors.New("blank timezone name")
)

// NewResolver returns a Resolver for viewerTimezone using the IANA database
// and the wall clock.
func NewResolver(viewerTimezone string) *Resolver {
	return &Resolver{
		Offsets:        defaultProvider,
		ViewerTimezone: viewerTimezone,
		Now:            time.Now,
	}
}

// ResolveShiftedStartTime shifts startTime, expressed in ownerTimezone, into
// the process-local zone using the offsets in effect right now.
func ResolveShiftedStartTime(startTime int, ownerTimezone string) int {
	return NewResolver("Local").ResolveShiftedStartTime(startTime, ownerTimezone)
}

// ResolveShiftedStartTime shifts startTime from ownerTimezone into the viewer's
// zone using the offsets in effect at the resolver's current instant. The
// result is not wrapped into a single day and may be negative or exceed 1440.
func (r *Resolver) ResolveShiftedStartTime(startTime int, ownerTimezone string) int {
	return r.ResolveShiftedStartTimeAt(startTime, ownerTimezone, r.now())
}

// ResolveShiftedStartTimeAt is ResolveShiftedStartTime with an explicit
// reference instant, so a specific occurrence date can pick its own DST rule.
func (r *Resolver) ResolveShiftedStartTimeAt(startTime int, ownerTimezone string, reference time.Time) int {
	return startTime - r.OffsetDelta(ownerTimezone, reference)
}

// OffsetDelta returns how many minutes the owner's zone is ahead of the
// viewer's at reference. Unresolvable zones yield zero.
func (r *Resolver) OffsetDelta(ownerTimezone string, reference time.Time) int {
	viewerTZ := r.viewerTimezone()
	if ownerTimezone == viewerTZ {
		return 0
	}
	provider := r.provider()

	viewerOffset, err := provider.OffsetMinutesAt(viewerTZ, reference)
	if err != nil {
		r.debug("viewer timezone unresolved", "timezone", viewerTZ, "error", err)
		return 0
	}
	ownerOffset, err := provider.OffsetMinutesAt(ownerTimezone, reference)
	if err != nil {
		r.debug("owner timezone unresolved", "timezone", ownerTimezone, "error", err)
		return 0
	}
	return ownerOffset - viewerOffset
}

// ViewerLocation returns the viewer's zone, falling back to time.Local.
func (r *Resolver) ViewerLocation() *time.Location {
	if p, ok := r.provider().(*ZoneDBProvider); ok {
		if loc, err := p.Location(r.viewerTimezone()); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(r.viewerTimezone()); err == nil {
		return loc
	}
	return time.Local
}

func (r *Resolver) provider() TimeZoneOffsetProvider {
	if r == nil || r.Offsets == nil {
		return defaultProvider
	}
	return r.Offsets
}

func (r *Resolver) viewerTimezone() string {
	if r == nil || r.ViewerTimezone == "" {
		return "Local"
	}
	return r.ViewerTimezone
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Resolver) debug(msg string, attrs ...any) {
	if r == nil || r.Logger == nil {
		return
	}
	r.Logger.DebugContext(context.Background(), msg, attrs...)
}
