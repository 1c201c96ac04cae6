package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/synccircle/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const eventColumns = `id, circle_id, user_id, title, day, start_time, duration, start_date, end_date, created_at, updated_at`

// CreateEvent inserts one event. The owner and circle must exist.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	return r.insert(ctx, r.helper, event)
}

// CreateEvents inserts every event in one transaction.
func (r *EventRepository) CreateEvents(ctx context.Context, events []persistence.Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		helper := r.helper.With(tx)
		for _, event := range events {
			if err := r.insert(ctx, helper, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateEventsForOwner rewrites the owner row and inserts the events in one
// transaction, so the events never exist without the owner's new timezone.
func (r *EventRepository) CreateEventsForOwner(ctx context.Context, owner persistence.Member, events []persistence.Event) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		helper := r.helper.With(tx)
		if err := updateMember(ctx, helper, r.mapper, owner); err != nil {
			return err
		}
		for _, event := range events {
			if event.UserID != owner.ID {
				return persistence.ErrConstraintViolation
			}
			if err := r.insert(ctx, helper, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EventRepository) insert(ctx context.Context, helper *QueryHelper, event persistence.Event) error {
	if event.ID == "" || event.CircleID == "" || event.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&event.CreatedAt, &event.UpdatedAt)

	_, err := helper.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.CircleID,
		event.UserID,
		event.Title,
		event.Day,
		event.StartTime,
		event.Duration,
		event.StartDate,
		event.EndDate,
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	event, err := scanEvent(r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// UpdateEvent replaces the schedule fields of an event. Owner and circle are
// fixed at creation.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE events
		SET title = ?, day = ?, start_time = ?, duration = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		event.Title,
		event.Day,
		event.StartTime,
		event.Duration,
		event.StartDate,
		event.EndDate,
		formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListEventsByCircle returns the circle's events ordered by day and start.
func (r *EventRepository) ListEventsByCircle(ctx context.Context, circleID string) ([]persistence.Event, error) {
	return listEvents(ctx, r.helper, r.mapper, circleID)
}

func listEvents(ctx context.Context, helper *QueryHelper, mapper *ErrorMapper, circleID string) ([]persistence.Event, error) {
	rows, err := helper.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE circle_id = ?
		ORDER BY day ASC, start_time ASC, id ASC`, circleID)
	if err != nil {
		return nil, mapper.MapError(err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return events, nil
}

// DeleteEventsEndedBefore purges events whose window closed before date.
// The statement is retried while the database is busy.
func (r *EventRepository) DeleteEventsEndedBefore(ctx context.Context, date string) (int, error) {
	var removed int
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE end_date < ?`, date)
		if err != nil {
			return err
		}
		removed, err = rowsAffected(result)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                persistence.Event
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&event.ID,
		&event.CircleID,
		&event.UserID,
		&event.Title,
		&event.Day,
		&event.StartTime,
		&event.Duration,
		&event.StartDate,
		&event.EndDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Event{}, err
	}

	var err error
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
