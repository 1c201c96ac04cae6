package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/scheduler"
)

// EventService manages members' weekly events.
type EventService struct {
	circles     persistence.CircleRepository
	members     persistence.MemberRepository
	events      persistence.EventRepository
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// EventServiceOptions tunes NewEventService. Zero values pick defaults.
type EventServiceOptions struct {
	Notifier    ChangeNotifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(circles persistence.CircleRepository, members persistence.MemberRepository, events persistence.EventRepository, opts EventServiceOptions) *EventService {
	if opts.IDGenerator == nil {
		opts.IDGenerator = NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EventService{
		circles:     circles,
		members:     members,
		events:      events,
		notifier:    opts.Notifier,
		idGenerator: opts.IDGenerator,
		now:         opts.Now,
		logger:      defaultLogger(opts.Logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

func (s *EventService) changed(circleID string) {
	if s.notifier != nil {
		s.notifier.CircleChanged(circleID)
	}
}

func (s *EventService) ready() error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.circles == nil || s.members == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	return nil
}

// CreateEvent validates and stores one event. Overlaps with the owner's other
// events on the same weekday are returned as advisory conflicts; they do not
// block the write.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (result EventResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "circle_id", params.CircleID, "user_id", params.Input.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", result.Event.ID, "conflicts", len(result.Conflicts)).InfoContext(ctx, "event created")
	}()

	input := s.normalizeInput(params.Input)
	if vErr := validateEventFields(input.Title, input.Day, input.StartTime, input.Duration, input.StartDate, input.EndDate); vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.ownerInCircle(ctx, params.CircleID, input.UserID, "user_id"); err != nil {
		return
	}

	now := s.now().UTC()
	event := persistence.Event{
		ID:        s.idGenerator(),
		CircleID:  params.CircleID,
		UserID:    input.UserID,
		Title:     input.Title,
		Day:       input.Day,
		StartTime: input.StartTime,
		Duration:  input.Duration,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var conflicts []scheduler.Conflict
	conflicts, err = s.detectConflicts(ctx, event)
	if err != nil {
		return
	}
	if err = s.events.CreateEvent(ctx, event); err != nil {
		err = mapRepoError(err)
		return
	}

	s.changed(params.CircleID)
	result = EventResult{Event: event, Conflicts: conflicts}
	return
}

// BatchAddEvents stores a whole timetable for one member in a single write.
// When Timezone is set the owner's zone is updated to it, since imported
// times are expressed in that zone.
func (s *EventService) BatchAddEvents(ctx context.Context, params BatchAddEventsParams) (created []persistence.Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "BatchAddEvents", "circle_id", params.CircleID, "owner_id", params.OwnerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "events added", "count", len(created))
	}()

	vErr := &ValidationError{}
	timezone := strings.TrimSpace(params.Timezone)
	if timezone != "" {
		validateTimezone("timezone", timezone, vErr)
	}
	if len(params.Events) == 0 {
		vErr.add("events", MsgEventsRequired)
	}

	now := s.now().UTC()
	batch := make([]persistence.Event, 0, len(params.Events))
	for i, raw := range params.Events {
		raw.UserID = params.OwnerID
		input := s.normalizeInput(raw)
		vErr.merge(fmt.Sprintf("events[%d].", i), validateEventFields(input.Title, input.Day, input.StartTime, input.Duration, input.StartDate, input.EndDate))
		batch = append(batch, persistence.Event{
			ID:        s.idGenerator(),
			CircleID:  params.CircleID,
			UserID:    params.OwnerID,
			Title:     input.Title,
			Day:       input.Day,
			StartTime: input.StartTime,
			Duration:  input.Duration,
			StartDate: input.StartDate,
			EndDate:   input.EndDate,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var owner persistence.Member
	owner, err = s.ownerInCircle(ctx, params.CircleID, params.OwnerID, "owner_id")
	if err != nil {
		return
	}
	if timezone != "" && timezone != owner.Timezone {
		owner.Timezone = timezone
		owner.UpdatedAt = now
		err = s.events.CreateEventsForOwner(ctx, owner, batch)
	} else {
		err = s.events.CreateEvents(ctx, batch)
	}
	if err != nil {
		err = mapRepoError(err)
		return
	}
	created = batch
	s.changed(params.CircleID)
	return
}

// UpdateEvent applies a partial update to an event. A blank title falls back
// to DefaultEventTitle.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (result EventResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "circle_id", params.CircleID, "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflicts", len(result.Conflicts)).InfoContext(ctx, "event updated")
	}()

	if params.Title == nil && params.Day == nil && params.StartTime == nil && params.Duration == nil &&
		params.StartDate == nil && params.EndDate == nil {
		vErr := &ValidationError{}
		vErr.add("body", MsgNothingToUpdate)
		err = vErr
		return
	}

	var event persistence.Event
	event, err = s.eventInCircle(ctx, params.CircleID, params.EventID)
	if err != nil {
		return
	}

	if title := trimmedPtr(params.Title); title != nil {
		event.Title = *title
		if event.Title == "" {
			event.Title = DefaultEventTitle
		}
	}
	if params.Day != nil {
		event.Day = *params.Day
	}
	if params.StartTime != nil {
		event.StartTime = *params.StartTime
	}
	if params.Duration != nil {
		event.Duration = *params.Duration
	}
	if date := trimmedPtr(params.StartDate); date != nil {
		event.StartDate = *date
	}
	if date := trimmedPtr(params.EndDate); date != nil {
		event.EndDate = *date
	}
	if vErr := validateEventFields(event.Title, event.Day, event.StartTime, event.Duration, event.StartDate, event.EndDate); vErr.HasErrors() {
		err = vErr
		return
	}

	var conflicts []scheduler.Conflict
	conflicts, err = s.detectConflicts(ctx, event)
	if err != nil {
		return
	}
	event.UpdatedAt = s.now().UTC()
	if err = s.events.UpdateEvent(ctx, event); err != nil {
		err = mapRepoError(err)
		return
	}

	s.changed(params.CircleID)
	result = EventResult{Event: event, Conflicts: conflicts}
	return
}

// DeleteEvent removes an event from a circle.
func (s *EventService) DeleteEvent(ctx context.Context, circleID, eventID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	logger := s.loggerWith(ctx, "DeleteEvent", "circle_id", circleID, "event_id", eventID)

	if _, err := s.eventInCircle(ctx, circleID, eventID); err != nil {
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.changed(circleID)
	logger.InfoContext(ctx, "event deleted")
	return nil
}

// ListEvents returns a circle's events ordered by weekday and start time.
func (s *EventService) ListEvents(ctx context.Context, circleID string) ([]persistence.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.circles.GetCircle(ctx, circleID); err != nil {
		return nil, mapRepoError(err)
	}
	events, err := s.events.ListEventsByCircle(ctx, circleID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return events, nil
}

// normalizeInput trims text, names untitled events and fills a missing
// validity window with today through December 31 of the current year.
func (s *EventService) normalizeInput(input EventInput) EventInput {
	input.UserID = strings.TrimSpace(input.UserID)
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		input.Title = DefaultEventTitle
	}

	today := s.now()
	input.StartDate = strings.TrimSpace(input.StartDate)
	if input.StartDate == "" {
		input.StartDate = today.Format(layout.DateLayout)
	}
	input.EndDate = strings.TrimSpace(input.EndDate)
	if input.EndDate == "" {
		input.EndDate = fmt.Sprintf("%04d-12-31", today.Year())
	}
	return input
}

func (s *EventService) ownerInCircle(ctx context.Context, circleID, ownerID, field string) (persistence.Member, error) {
	if ownerID == "" {
		vErr := &ValidationError{}
		vErr.add(field, MsgMemberRequired)
		return persistence.Member{}, vErr
	}
	if _, err := s.circles.GetCircle(ctx, circleID); err != nil {
		return persistence.Member{}, mapRepoError(err)
	}
	owner, err := s.members.GetMember(ctx, ownerID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Member{}, mapRepoError(err)
	}
	if err != nil || owner.CircleID != circleID {
		vErr := &ValidationError{}
		vErr.add(field, MsgMemberUnknown)
		return persistence.Member{}, vErr
	}
	return owner, nil
}

func (s *EventService) eventInCircle(ctx context.Context, circleID, eventID string) (persistence.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return persistence.Event{}, mapRepoError(err)
	}
	if event.CircleID != circleID {
		return persistence.Event{}, ErrNotFound
	}
	return event, nil
}

func (s *EventService) detectConflicts(ctx context.Context, candidate persistence.Event) ([]scheduler.Conflict, error) {
	existing, err := s.events.ListEventsByCircle(ctx, candidate.CircleID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return scheduler.DetectConflicts(toLayoutEvents(existing), toLayoutEvent(candidate)), nil
}
