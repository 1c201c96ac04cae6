package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/synccircle/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const memberColumns = `id, circle_id, name, color, active, timezone, avatar, created_at, updated_at`

// CreateMember inserts a member. The circle must exist.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) error {
	return r.insert(ctx, r.helper, member)
}

func (r *MemberRepository) insert(ctx context.Context, helper *QueryHelper, member persistence.Member) error {
	if member.ID == "" || member.CircleID == "" {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&member.CreatedAt, &member.UpdatedAt)

	_, err := helper.Exec(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.CircleID,
		member.Name,
		member.Color,
		boolToInt(member.Active),
		member.Timezone,
		member.Avatar,
		formatTime(member.CreatedAt),
		formatTime(member.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}

	member, err := scanMember(r.helper.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// UpdateMember replaces the mutable fields of a member. The circle never changes.
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) error {
	return updateMember(ctx, r.helper, r.mapper, member)
}

func updateMember(ctx context.Context, helper *QueryHelper, mapper *ErrorMapper, member persistence.Member) error {
	if member.ID == "" {
		return persistence.ErrNotFound
	}
	if member.UpdatedAt.IsZero() {
		member.UpdatedAt = time.Now().UTC()
	}

	result, err := helper.Exec(ctx, `
		UPDATE members
		SET name = ?, color = ?, active = ?, timezone = ?, avatar = ?, updated_at = ?
		WHERE id = ?`,
		member.Name,
		member.Color,
		boolToInt(member.Active),
		member.Timezone,
		member.Avatar,
		formatTime(member.UpdatedAt),
		member.ID,
	)
	if err != nil {
		return mapper.MapError(err)
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

// ListMembersByCircle returns the circle's members in join order.
func (r *MemberRepository) ListMembersByCircle(ctx context.Context, circleID string) ([]persistence.Member, error) {
	return listMembers(ctx, r.helper, r.mapper, circleID)
}

func listMembers(ctx context.Context, helper *QueryHelper, mapper *ErrorMapper, circleID string) ([]persistence.Member, error) {
	rows, err := helper.Query(ctx, `
		SELECT `+memberColumns+`
		FROM members
		WHERE circle_id = ?
		ORDER BY created_at ASC, id ASC`, circleID)
	if err != nil {
		return nil, mapper.MapError(err)
	}
	defer rows.Close()

	members := make([]persistence.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, mapper.MapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return members, nil
}

// DeleteMember removes a member; the foreign key cascades to its events.
func (r *MemberRepository) DeleteMember(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM members WHERE id = ?`, id)
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

// SetMembersActive sets Active on every member of the circle.
func (r *MemberRepository) SetMembersActive(ctx context.Context, circleID string, active bool) (int, error) {
	result, err := r.helper.Exec(ctx, `
		UPDATE members
		SET active = ?, updated_at = ?
		WHERE circle_id = ? AND active <> ?`,
		boolToInt(active),
		formatTime(time.Now()),
		circleID,
		boolToInt(active),
	)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return rowsAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member               persistence.Member
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&member.ID,
		&member.CircleID,
		&member.Name,
		&member.Color,
		&active,
		&member.Timezone,
		&member.Avatar,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Member{}, err
	}

	member.Active = active != 0
	var err error
	if member.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Member{}, err
	}
	if member.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Member{}, err
	}
	return member, nil
}
