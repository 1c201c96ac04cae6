package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/layout"
	"github.com/example/synccircle/internal/persistence/sqlite"
)

// ServiceFactory builds application services with deterministic clocks and
// identifiers.
type ServiceFactory struct {
	Clock          *Clock
	IDGenerator    *IDGenerator
	ViewerTimezone string
	DSTReference   layout.DSTReference
	Logger         *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory using ReferenceTime, "id-N" identifiers
// and a UTC viewer.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:          NewClock(time.Time{}),
		IDGenerator:    NewIDGenerator("id"),
		ViewerTimezone: "UTC",
		DSTReference:   layout.DSTReferenceNow,
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

// WithViewerTimezone overrides the default viewer zone.
func WithViewerTimezone(timezone string) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.ViewerTimezone = timezone }
}

// WithDSTReference overrides how week views pick offsets.
func WithDSTReference(reference layout.DSTReference) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.DSTReference = reference }
}

// Services is the full set of application services over one storage.
type Services struct {
	Circles  *application.CircleService
	Members  *application.MemberService
	Events   *application.EventService
	Calendar *application.CalendarService
}

// NewServices wires every service to storage. Writes through Members and
// Events invalidate Calendar's week cache.
func (f *ServiceFactory) NewServices(storage *sqlite.Storage) Services {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()

	calendar := application.NewCalendarService(storage, application.CalendarServiceOptions{
		Now:            now,
		ViewerTimezone: f.ViewerTimezone,
		DSTReference:   f.DSTReference,
		Logger:         f.Logger,
	})
	return Services{
		Circles: application.NewCircleService(storage, application.CircleServiceOptions{
			CircleIDs:       ids,
			MemberIDs:       ids,
			Now:             now,
			DefaultTimezone: f.ViewerTimezone,
			Logger:          f.Logger,
		}),
		Members: application.NewMemberService(storage, storage, application.MemberServiceOptions{
			Notifier:        calendar,
			IDGenerator:     ids,
			Now:             now,
			DefaultTimezone: f.ViewerTimezone,
			Logger:          f.Logger,
		}),
		Events: application.NewEventService(storage, storage, storage, application.EventServiceOptions{
			Notifier:    calendar,
			IDGenerator: ids,
			Now:         now,
			Logger:      f.Logger,
		}),
		Calendar: calendar,
	}
}
