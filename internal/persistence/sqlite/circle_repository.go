package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/synccircle/internal/persistence"
)

// CircleRepository implements persistence.CircleRepository using SQLite.
type CircleRepository struct {
	pool    *ConnectionPool
	helper  *QueryHelper
	mapper  *ErrorMapper
	members *MemberRepository
}

// NewCircleRepository creates a SQLite circle repository.
func NewCircleRepository(pool *ConnectionPool) *CircleRepository {
	return &CircleRepository{
		pool:    pool,
		helper:  NewQueryHelper(pool),
		mapper:  NewErrorMapper(),
		members: NewMemberRepository(pool),
	}
}

// CreateCircle inserts a circle.
func (r *CircleRepository) CreateCircle(ctx context.Context, circle persistence.Circle) error {
	return r.insert(ctx, r.helper, circle)
}

// CreateCircleWithHost inserts a circle and its host member in one transaction.
func (r *CircleRepository) CreateCircleWithHost(ctx context.Context, circle persistence.Circle, host persistence.Member) error {
	if host.CircleID != circle.ID {
		return fmt.Errorf("%w: host belongs to circle %q", persistence.ErrConstraintViolation, host.CircleID)
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.insert(ctx, r.helper.With(tx), circle); err != nil {
			return err
		}
		return r.members.insert(ctx, r.helper.With(tx), host)
	})
}

func (r *CircleRepository) insert(ctx context.Context, helper *QueryHelper, circle persistence.Circle) error {
	if circle.ID == "" {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&circle.CreatedAt, &circle.UpdatedAt)

	_, err := helper.Exec(ctx, `
		INSERT INTO circles (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		circle.ID,
		circle.Name,
		formatTime(circle.CreatedAt),
		formatTime(circle.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetCircle retrieves a circle by ID.
func (r *CircleRepository) GetCircle(ctx context.Context, id string) (persistence.Circle, error) {
	return getCircle(ctx, r.helper, r.mapper, id)
}

func getCircle(ctx context.Context, helper *QueryHelper, mapper *ErrorMapper, id string) (persistence.Circle, error) {
	if id == "" {
		return persistence.Circle{}, persistence.ErrNotFound
	}

	var (
		circle               persistence.Circle
		createdAt, updatedAt string
	)
	err := helper.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM circles
		WHERE id = ?`, id).Scan(&circle.ID, &circle.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Circle{}, persistence.ErrNotFound
		}
		return persistence.Circle{}, mapper.MapError(err)
	}

	if circle.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Circle{}, err
	}
	if circle.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Circle{}, err
	}
	return circle, nil
}

// UpdateCircle renames an existing circle.
func (r *CircleRepository) UpdateCircle(ctx context.Context, circle persistence.Circle) error {
	if circle.ID == "" {
		return persistence.ErrNotFound
	}
	if circle.UpdatedAt.IsZero() {
		circle.UpdatedAt = time.Now().UTC()
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE circles
		SET name = ?, updated_at = ?
		WHERE id = ?`,
		circle.Name,
		formatTime(circle.UpdatedAt),
		circle.ID,
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

// stampCreated fills zero creation and update timestamps.
func stampCreated(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
