package housekeeping

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purgerStub struct {
	dates   []string
	removed int
	err     error
}

func (p *purgerStub) DeleteEventsEndedBefore(_ context.Context, date string) (int, error) {
	p.dates = append(p.dates, date)
	return p.removed, p.err
}

func fixedNow() time.Time {
	return time.Date(2024, time.June, 30, 3, 0, 0, 0, time.UTC)
}

func TestJobRunPurgesBeforeCutoff(t *testing.T) {
	purger := &purgerStub{removed: 4}
	var notified int
	var logs bytes.Buffer

	job := NewJob(purger, Options{
		Retention: 30 * 24 * time.Hour,
		Now:       fixedNow,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		OnPurged:  func(removed int) { notified = removed },
	})

	removed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, removed)
	assert.Equal(t, []string{"2024-05-31"}, purger.dates)
	assert.Equal(t, 4, notified)
	assert.Contains(t, logs.String(), "expired events purged")
	assert.Contains(t, logs.String(), "removed=4")
}

func TestJobRunDoesNotNotifyWhenNothingRemoved(t *testing.T) {
	called := false
	job := NewJob(&purgerStub{}, Options{
		Now:      fixedNow,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnPurged: func(int) { called = true },
	})

	removed, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.False(t, called)
	assert.Equal(t, "2024-04-01", job.Cutoff(), "default retention is 90 days")
}

func TestJobRunReportsErrors(t *testing.T) {
	boom := errors.New("database is locked")
	job := NewJob(&purgerStub{err: boom}, Options{Now: fixedNow, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewJob(nil, Options{}).Run(context.Background())
	assert.Error(t, err)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	_, err := Start("whenever", NewJob(&purgerStub{}, Options{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "whenever"))
}

func TestStartSchedulesAndStops(t *testing.T) {
	scheduler, err := Start("0 3 * * *", NewJob(&purgerStub{}, Options{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	next := scheduler.Next()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, scheduler.Stop(ctx))
}
