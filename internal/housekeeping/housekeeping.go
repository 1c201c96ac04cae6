// Package housekeeping runs periodic maintenance against the event store.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/synccircle/internal/layout"
)

// EventPurger removes events whose validity window closed before date
// (YYYY-MM-DD).
type EventPurger interface {
	DeleteEventsEndedBefore(ctx context.Context, date string) (int, error)
}

// Options tunes NewJob. Zero values pick defaults.
type Options struct {
	// Retention is how long an ended event is kept. Defaults to 90 days.
	Retention time.Duration
	// Timeout bounds one run. Defaults to one minute.
	Timeout time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
	// OnPurged is called after a run that removed at least one event.
	OnPurged func(removed int)
}

// Job deletes events that ended longer ago than the retention window.
type Job struct {
	purger    EventPurger
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
	onPurged  func(int)
}

// NewJob returns a purge job over purger.
func NewJob(purger EventPurger, opts Options) *Job {
	if opts.Retention <= 0 {
		opts.Retention = 90 * 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Job{
		purger:    purger,
		retention: opts.Retention,
		timeout:   opts.Timeout,
		now:       opts.Now,
		logger:    opts.Logger.With("component", "housekeeping"),
		onPurged:  opts.OnPurged,
	}
}

// Cutoff is the first date whose events are kept.
func (j *Job) Cutoff() string {
	return layout.FormatDate(j.now().Add(-j.retention))
}

// Run performs one purge and returns the number of events removed.
func (j *Job) Run(ctx context.Context) (int, error) {
	if j == nil || j.purger == nil {
		return 0, fmt.Errorf("housekeeping: purger not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	cutoff := j.Cutoff()
	started := time.Now()
	removed, err := j.purger.DeleteEventsEndedBefore(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to purge expired events", "cutoff", cutoff, "error", err)
		return 0, err
	}

	j.logger.InfoContext(ctx, "expired events purged",
		"cutoff", cutoff,
		"removed", removed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if removed > 0 && j.onPurged != nil {
		j.onPurged(removed)
	}
	return removed, nil
}

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
}

// Start schedules job with a standard five-field cron spec and starts the
// scheduler. Overlapping runs are skipped and panics are recovered.
func Start(spec string, job *Job, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := slogLogger{logger: logger.With("component", "cron")}

	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		_, _ = job.Run(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("housekeeping: invalid schedule %q: %w", spec, err)
	}
	c.Start()
	return &Scheduler{cron: c, job: job}, nil
}

// Next returns when the job runs next, or the zero time if nothing is
// scheduled.
func (s *Scheduler) Next() time.Time {
	if s == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts scheduling and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
