package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/synccircle/internal/persistence"
)

// ChangeNotifier is told whenever a circle's members or events change.
type ChangeNotifier interface {
	CircleChanged(circleID string)
}

// MemberService manages the people of a circle.
type MemberService struct {
	circles         persistence.CircleRepository
	members         persistence.MemberRepository
	notifier        ChangeNotifier
	idGenerator     func() string
	now             func() time.Time
	defaultTimezone string
	logger          *slog.Logger
}

// MemberServiceOptions tunes NewMemberService. Zero values pick defaults.
type MemberServiceOptions struct {
	Notifier        ChangeNotifier
	IDGenerator     func() string
	Now             func() time.Time
	DefaultTimezone string
	Logger          *slog.Logger
}

// NewMemberService wires dependencies for member operations.
func NewMemberService(circles persistence.CircleRepository, members persistence.MemberRepository, opts MemberServiceOptions) *MemberService {
	if opts.IDGenerator == nil {
		opts.IDGenerator = NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	return &MemberService{
		circles:         circles,
		members:         members,
		notifier:        opts.Notifier,
		idGenerator:     opts.IDGenerator,
		now:             opts.Now,
		defaultTimezone: opts.DefaultTimezone,
		logger:          defaultLogger(opts.Logger),
	}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

func (s *MemberService) changed(circleID string) {
	if s.notifier != nil {
		s.notifier.CircleChanged(circleID)
	}
}

func (s *MemberService) ready() error {
	if s == nil {
		return fmt.Errorf("MemberService is nil")
	}
	if s.circles == nil || s.members == nil {
		return fmt.Errorf("member repository not configured")
	}
	return nil
}

// AddMember joins a new, active member to a circle. The color is picked from
// Palette by the circle's current member count and a blank timezone uses the
// service default.
func (s *MemberService) AddMember(ctx context.Context, params AddMemberParams) (member persistence.Member, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddMember", "circle_id", params.CircleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", member.ID).InfoContext(ctx, "member added")
	}()

	name := strings.TrimSpace(params.Name)
	timezone := strings.TrimSpace(params.Timezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	vErr := &ValidationError{}
	validateName("name", name, vErr)
	validateTimezone("timezone", timezone, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.circles.GetCircle(ctx, params.CircleID); err != nil {
		err = mapRepoError(err)
		return
	}
	var existing []persistence.Member
	existing, err = s.members.ListMembersByCircle(ctx, params.CircleID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now().UTC()
	member = persistence.Member{
		ID:        s.idGenerator(),
		CircleID:  params.CircleID,
		Name:      name,
		Color:     Palette[len(existing)%len(Palette)],
		Active:    true,
		Timezone:  timezone,
		Avatar:    strings.TrimSpace(params.Avatar),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.members.CreateMember(ctx, member); err != nil {
		err = mapRepoError(err)
		member = persistence.Member{}
		return
	}
	s.changed(params.CircleID)
	return
}

// UpdateMember applies a partial update to a member's profile.
func (s *MemberService) UpdateMember(ctx context.Context, params UpdateMemberParams) (member persistence.Member, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateMember", "circle_id", params.CircleID, "member_id", params.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member updated")
	}()

	if params.Name == nil && params.Color == nil && params.Timezone == nil && params.Avatar == nil {
		vErr := &ValidationError{}
		vErr.add("body", MsgNothingToUpdate)
		err = vErr
		return
	}

	member, err = s.memberInCircle(ctx, params.CircleID, params.MemberID)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	if name := trimmedPtr(params.Name); name != nil {
		validateName("name", *name, vErr)
		member.Name = *name
	}
	if color := trimmedPtr(params.Color); color != nil {
		validateColor("color", *color, vErr)
		member.Color = strings.ToUpper(*color)
	}
	if timezone := trimmedPtr(params.Timezone); timezone != nil {
		validateTimezone("timezone", *timezone, vErr)
		member.Timezone = *timezone
	}
	if avatar := trimmedPtr(params.Avatar); avatar != nil {
		member.Avatar = *avatar
	}
	if vErr.HasErrors() {
		err = vErr
		member = persistence.Member{}
		return
	}

	member.UpdatedAt = s.now().UTC()
	if err = s.members.UpdateMember(ctx, member); err != nil {
		err = mapRepoError(err)
		member = persistence.Member{}
		return
	}
	s.changed(params.CircleID)
	return
}

// ToggleMember flips whether the member's events are shown.
func (s *MemberService) ToggleMember(ctx context.Context, circleID, memberID string) (persistence.Member, error) {
	if err := s.ready(); err != nil {
		return persistence.Member{}, err
	}
	logger := s.loggerWith(ctx, "ToggleMember", "circle_id", circleID, "member_id", memberID)

	member, err := s.memberInCircle(ctx, circleID, memberID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to toggle member", "error", err, "error_kind", ErrorKind(err))
		return persistence.Member{}, err
	}
	member.Active = !member.Active
	member.UpdatedAt = s.now().UTC()
	if err := s.members.UpdateMember(ctx, member); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to toggle member", "error", err, "error_kind", ErrorKind(err))
		return persistence.Member{}, err
	}

	s.changed(circleID)
	logger.InfoContext(ctx, "member toggled", "active", member.Active)
	return member, nil
}

// SetAllActive shows or hides every member of a circle at once and returns
// how many members changed.
func (s *MemberService) SetAllActive(ctx context.Context, circleID string, active bool) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	logger := s.loggerWith(ctx, "SetAllActive", "circle_id", circleID, "active", active)

	if _, err := s.circles.GetCircle(ctx, circleID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to set members active", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}
	changed, err := s.members.SetMembersActive(ctx, circleID, active)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to set members active", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}

	if changed > 0 {
		s.changed(circleID)
	}
	logger.InfoContext(ctx, "members updated", "changed", changed)
	return changed, nil
}

// DeleteMember removes a member and every event the member owns.
func (s *MemberService) DeleteMember(ctx context.Context, circleID, memberID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	logger := s.loggerWith(ctx, "DeleteMember", "circle_id", circleID, "member_id", memberID)

	if _, err := s.memberInCircle(ctx, circleID, memberID); err != nil {
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.changed(circleID)
	logger.InfoContext(ctx, "member deleted")
	return nil
}

// ListMembers returns a circle's members in joining order.
func (s *MemberService) ListMembers(ctx context.Context, circleID string) ([]persistence.Member, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.circles.GetCircle(ctx, circleID); err != nil {
		return nil, mapRepoError(err)
	}
	members, err := s.members.ListMembersByCircle(ctx, circleID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return members, nil
}

// memberInCircle loads a member and hides members of other circles.
func (s *MemberService) memberInCircle(ctx context.Context, circleID, memberID string) (persistence.Member, error) {
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return persistence.Member{}, mapRepoError(err)
	}
	if member.CircleID != circleID {
		return persistence.Member{}, ErrNotFound
	}
	return member, nil
}
