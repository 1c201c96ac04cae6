package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/synccircle/internal/persistence"
)

// CircleService creates circles and manages their metadata.
type CircleService struct {
	circles         persistence.CircleRepository
	circleIDs       func() string
	memberIDs       func() string
	now             func() time.Time
	defaultTimezone string
	logger          *slog.Logger
}

// CircleServiceOptions tunes NewCircleService. Zero values pick defaults.
type CircleServiceOptions struct {
	CircleIDs       func() string
	MemberIDs       func() string
	Now             func() time.Time
	DefaultTimezone string
	Logger          *slog.Logger
}

// NewCircleService wires dependencies for circle operations.
func NewCircleService(circles persistence.CircleRepository, opts CircleServiceOptions) *CircleService {
	if opts.CircleIDs == nil {
		opts.CircleIDs = NewCircleCode
	}
	if opts.MemberIDs == nil {
		opts.MemberIDs = NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	return &CircleService{
		circles:         circles,
		circleIDs:       opts.CircleIDs,
		memberIDs:       opts.MemberIDs,
		now:             opts.Now,
		defaultTimezone: opts.DefaultTimezone,
		logger:          defaultLogger(opts.Logger),
	}
}

func (s *CircleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CircleService", operation, attrs...)
}

// CreateCircle stores a circle together with its host, who becomes the first
// member and takes the first palette color. A blank host name becomes "Host".
func (s *CircleService) CreateCircle(ctx context.Context, params CreateCircleParams) (result CircleWithHost, err error) {
	if s == nil {
		err = fmt.Errorf("CircleService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateCircle")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create circle", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("circle_id", result.Circle.ID, "host_id", result.Host.ID).InfoContext(ctx, "circle created")
	}()

	name := strings.TrimSpace(params.Name)
	hostName := strings.TrimSpace(params.HostName)
	if hostName == "" {
		hostName = "Host"
	}
	timezone := strings.TrimSpace(params.HostTimezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}

	vErr := &ValidationError{}
	validateName("name", name, vErr)
	validateName("host_name", hostName, vErr)
	validateTimezone("host_timezone", timezone, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	result.Circle = persistence.Circle{
		ID:        s.circleIDs(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result.Host = persistence.Member{
		ID:        s.memberIDs(),
		CircleID:  result.Circle.ID,
		Name:      hostName,
		Color:     Palette[0],
		Active:    true,
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.circles == nil {
		return
	}
	if err = s.circles.CreateCircleWithHost(ctx, result.Circle, result.Host); err != nil {
		err = mapRepoError(err)
		result = CircleWithHost{}
	}
	return
}

// GetCircle returns a circle by its code.
func (s *CircleService) GetCircle(ctx context.Context, circleID string) (persistence.Circle, error) {
	if s == nil {
		return persistence.Circle{}, fmt.Errorf("CircleService is nil")
	}
	if s.circles == nil {
		return persistence.Circle{}, fmt.Errorf("circle repository not configured")
	}
	circle, err := s.circles.GetCircle(ctx, circleID)
	if err != nil {
		return persistence.Circle{}, mapRepoError(err)
	}
	return circle, nil
}

// RenameCircle changes a circle's display name.
func (s *CircleService) RenameCircle(ctx context.Context, circleID, name string) (circle persistence.Circle, err error) {
	if s == nil {
		err = fmt.Errorf("CircleService is nil")
		return
	}
	if s.circles == nil {
		err = fmt.Errorf("circle repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RenameCircle", "circle_id", circleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to rename circle", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "circle renamed")
	}()

	name = strings.TrimSpace(name)
	vErr := &ValidationError{}
	validateName("name", name, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	circle, err = s.circles.GetCircle(ctx, circleID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	circle.Name = name
	circle.UpdatedAt = s.now().UTC()
	if err = s.circles.UpdateCircle(ctx, circle); err != nil {
		err = mapRepoError(err)
		circle = persistence.Circle{}
	}
	return
}
