package persistence

import "context"

// CircleRepository stores circles.
type CircleRepository interface {
	CreateCircle(ctx context.Context, circle Circle) error
	// CreateCircleWithHost stores a circle and its first member atomically.
	CreateCircleWithHost(ctx context.Context, circle Circle, host Member) error
	GetCircle(ctx context.Context, id string) (Circle, error)
	UpdateCircle(ctx context.Context, circle Circle) error
}

// MemberRepository stores circle members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	UpdateMember(ctx context.Context, member Member) error
	ListMembersByCircle(ctx context.Context, circleID string) ([]Member, error)
	// DeleteMember removes the member and, through the foreign key, its events.
	DeleteMember(ctx context.Context, id string) error
	// SetMembersActive flips Active for every member of the circle and returns
	// the number of rows changed.
	SetMembersActive(ctx context.Context, circleID string, active bool) (int, error)
}

// EventRepository stores weekly events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	// CreateEvents inserts all events or none.
	CreateEvents(ctx context.Context, events []Event) error
	// CreateEventsForOwner updates the owner and inserts its events atomically.
	CreateEventsForOwner(ctx context.Context, owner Member, events []Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEventsByCircle(ctx context.Context, circleID string) ([]Event, error)
	// DeleteEventsEndedBefore removes events whose EndDate (YYYY-MM-DD) is
	// strictly earlier than date and returns how many were removed.
	DeleteEventsEndedBefore(ctx context.Context, date string) (int, error)
}

// SnapshotReader loads a circle's full state in one read transaction.
type SnapshotReader interface {
	LoadCircleSnapshot(ctx context.Context, circleID string) (CircleSnapshot, error)
}
