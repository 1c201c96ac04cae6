package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/synccircle/internal/ical"
	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/recurrence"
	"github.com/example/synccircle/internal/scheduler"
)

const (
	// MaxOccurrenceRange bounds a single occurrence listing.
	MaxOccurrenceRange = 366 * 24 * time.Hour
	// ExportWeeks is how far ahead the iCalendar feed reaches.
	ExportWeeks = 12
)

// CalendarService renders read-only views of a circle's schedule: the week
// grid, common free time, concrete occurrences and the iCalendar feed.
type CalendarService struct {
	snapshots      persistence.SnapshotReader
	zones          *layout.ZoneDBProvider
	cache          *viewCache
	now            func() time.Time
	viewerTimezone string
	dstReference   layout.DSTReference
	pixelsPerHour  float64
	logger         *slog.Logger
}

// CalendarServiceOptions tunes NewCalendarService. Zero values pick defaults.
type CalendarServiceOptions struct {
	Now            func() time.Time
	ViewerTimezone string
	DSTReference   layout.DSTReference
	PixelsPerHour  float64
	CacheTTL       time.Duration
	CacheEntries   int
	Logger         *slog.Logger
}

// NewCalendarService wires dependencies for calendar views.
func NewCalendarService(snapshots persistence.SnapshotReader, opts CalendarServiceOptions) *CalendarService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ViewerTimezone == "" {
		opts.ViewerTimezone = "Local"
	}
	if opts.DSTReference == "" {
		opts.DSTReference = layout.DSTReferenceNow
	}
	return &CalendarService{
		snapshots:      snapshots,
		zones:          layout.NewZoneDBProvider(),
		cache:          newViewCache(opts.CacheTTL, opts.CacheEntries, opts.Now),
		now:            opts.Now,
		viewerTimezone: opts.ViewerTimezone,
		dstReference:   opts.DSTReference,
		pixelsPerHour:  opts.PixelsPerHour,
		logger:         defaultLogger(opts.Logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// CircleChanged drops cached weeks of circleID. Member and event services
// call it after every write.
func (s *CalendarService) CircleChanged(circleID string) {
	if s == nil {
		return
	}
	s.cache.InvalidateCircle(circleID)
}

// ResetCache drops every cached week. Housekeeping calls it after purging
// events across circles.
func (s *CalendarService) ResetCache() {
	if s == nil {
		return
	}
	s.cache.Invalidate()
}

func (s *CalendarService) ready() error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if s.snapshots == nil {
		return fmt.Errorf("snapshot reader not configured")
	}
	return nil
}

func (s *CalendarService) resolveViewer(field, timezone string) (string, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = s.viewerTimezone
	}
	if !ValidTimezone(timezone) {
		vErr := &ValidationError{}
		vErr.add(field, MsgTimezoneInvalid)
		return "", vErr
	}
	return timezone, nil
}

// WeekView lays out the Monday-first week containing params.Date as seen from
// the viewer's zone. Results are cached until the circle changes or the
// cache TTL passes.
func (s *CalendarService) WeekView(ctx context.Context, params WeekViewParams) (layout.Week, error) {
	if err := s.ready(); err != nil {
		return layout.Week{}, err
	}
	viewer, err := s.resolveViewer("tz", params.ViewerTimezone)
	if err != nil {
		return layout.Week{}, err
	}
	date := params.Date
	if date.IsZero() {
		date = s.now()
		if loc, err := s.zones.Location(viewer); err == nil {
			date = date.In(loc)
		}
	}

	key := buildViewCacheKey(params.CircleID, date, viewer, s.dstReference)
	if week, ok := s.cache.Get(key); ok {
		return week, nil
	}

	logger := s.loggerWith(ctx, "WeekView", "circle_id", params.CircleID, "viewer_timezone", viewer)
	snapshot, err := s.snapshots.LoadCircleSnapshot(ctx, params.CircleID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to load circle", "error", err, "error_kind", ErrorKind(err))
		return layout.Week{}, err
	}

	resolver := &layout.Resolver{
		Offsets:        s.zones,
		ViewerTimezone: viewer,
		Now:            s.now,
		Logger:         logger,
	}
	week := layout.BuildWeek(
		toLayoutUsers(snapshot.Members),
		toLayoutEvents(snapshot.Events),
		date,
		resolver,
		layout.WeekOptions{PixelsPerHour: s.pixelsPerHour, DSTReference: s.dstReference},
	)
	s.cache.Store(key, week)
	logger.DebugContext(ctx, "week view built", "week_start", layout.FormatDate(week.WeekStart))
	return week, nil
}

// FreeSlots finds the times in the viewed week when every active member is
// free for at least MinDuration minutes.
func (s *CalendarService) FreeSlots(ctx context.Context, params FreeSlotsParams) (FreeSlots, error) {
	if params.MinDuration < 0 || params.MinDuration > layout.MinutesPerDay {
		vErr := &ValidationError{}
		vErr.add("min", MsgDurationPositive)
		return FreeSlots{}, vErr
	}
	week, err := s.WeekView(ctx, params.WeekViewParams)
	if err != nil {
		return FreeSlots{}, err
	}
	slots := scheduler.FindFreeSlots(scheduler.BusyFromWeek(week), scheduler.Options{MinDuration: params.MinDuration})
	return FreeSlots{
		WeekStart:      week.WeekStart,
		ViewerTimezone: week.ViewerTimezone,
		Slots:          slots,
	}, nil
}

// Occurrences expands the active members' events into concrete instants
// starting within [From, To].
func (s *CalendarService) Occurrences(ctx context.Context, params OccurrencesParams) ([]recurrence.Occurrence, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	vErr := &ValidationError{}
	if params.From.IsZero() || params.To.IsZero() || params.To.Before(params.From) || params.To.Sub(params.From) > MaxOccurrenceRange {
		vErr.add("to", MsgDateOrder)
	}
	timezone := strings.TrimSpace(params.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	loc, locErr := s.zones.Location(timezone)
	if locErr != nil {
		vErr.add("tz", MsgTimezoneInvalid)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	logger := s.loggerWith(ctx, "Occurrences", "circle_id", params.CircleID)
	snapshot, err := s.snapshots.LoadCircleSnapshot(ctx, params.CircleID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to load circle", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	active := make([]persistence.Member, 0, len(snapshot.Members))
	for _, member := range snapshot.Members {
		if member.Active {
			active = append(active, member)
		}
	}
	return s.expand(ctx, logger, active, snapshot.Events, loc, params.From, params.To)
}

// ExportICS renders every member's occurrences from the start of the current
// week through ExportWeeks weeks ahead. DTSTAMP is the circle's most recent
// change so an unchanged circle yields identical bytes and ETag.
func (s *CalendarService) ExportICS(ctx context.Context, circleID string) (CalendarExport, error) {
	if err := s.ready(); err != nil {
		return CalendarExport{}, err
	}

	logger := s.loggerWith(ctx, "ExportICS", "circle_id", circleID)
	snapshot, err := s.snapshots.LoadCircleSnapshot(ctx, circleID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to load circle", "error", err, "error_kind", ErrorKind(err))
		return CalendarExport{}, err
	}

	from := layout.WeekStart(s.now())
	to := from.AddDate(0, 0, 7*ExportWeeks)
	occurrences, err := s.expand(ctx, logger, snapshot.Members, snapshot.Events, time.UTC, from, to)
	if err != nil {
		return CalendarExport{}, err
	}

	timezone := s.viewerTimezone
	if timezone == "Local" {
		timezone = "UTC"
	}
	stamp := lastChange(snapshot)
	body := ical.ExportCircle(ical.Feed{
		CircleID:    snapshot.Circle.ID,
		CircleName:  snapshot.Circle.Name,
		Timezone:    timezone,
		Stamp:       stamp,
		Members:     toLayoutUsers(snapshot.Members),
		Occurrences: occurrences,
	})
	logger.InfoContext(ctx, "calendar exported", "occurrences", len(occurrences), "bytes", len(body))
	return CalendarExport{Body: body, ETag: ical.ETag(body), Stamp: stamp}, nil
}

func (s *CalendarService) expand(ctx context.Context, logger *slog.Logger, members []persistence.Member, events []persistence.Event, loc *time.Location, from, to time.Time) ([]recurrence.Occurrence, error) {
	owners := make(map[string]*time.Location, len(members))
	for _, member := range members {
		ownerLoc, err := s.zones.Location(member.Timezone)
		if err != nil {
			logger.WarnContext(ctx, "member timezone unresolved, using UTC", "member_id", member.ID, "timezone", member.Timezone)
			ownerLoc = time.UTC
		}
		owners[member.ID] = ownerLoc
	}

	selected := make([]layout.ScheduleEvent, 0, len(events))
	for _, event := range events {
		if _, ok := owners[event.UserID]; ok {
			selected = append(selected, toLayoutEvent(event))
		}
	}

	engine := recurrence.NewEngine(loc)
	occurrences, skipped, err := engine.ExpandAll(selected, func(userID string) *time.Location {
		return owners[userID]
	}, from, to)
	if err != nil {
		return nil, err
	}
	for eventID, cause := range skipped {
		logger.WarnContext(ctx, "event skipped during expansion", "event_id", eventID, "error", cause)
	}
	return occurrences, nil
}

func lastChange(snapshot persistence.CircleSnapshot) time.Time {
	latest := snapshot.Circle.UpdatedAt
	for _, member := range snapshot.Members {
		if member.UpdatedAt.After(latest) {
			latest = member.UpdatedAt
		}
	}
	for _, event := range snapshot.Events {
		if event.UpdatedAt.After(latest) {
			latest = event.UpdatedAt
		}
	}
	return latest.UTC()
}
