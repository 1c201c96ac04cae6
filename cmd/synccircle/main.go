package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/synccircle/internal/application"
	"github.com/example/synccircle/internal/config"
	"github.com/example/synccircle/internal/housekeeping"
	httptransport "github.com/example/synccircle/internal/http"
	"github.com/example/synccircle/internal/i18n"
	"github.com/example/synccircle/internal/logging"
	"github.com/example/synccircle/internal/persistence/sqlite"
	"github.com/example/synccircle/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.Level())

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("synccircle stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	app, err := newApp(cfg, storage, logger)
	if err != nil {
		return err
	}

	var janitor *housekeeping.Scheduler
	if cfg.HousekeepingEnabled() {
		janitor, err = housekeeping.Start(cfg.HousekeepingCron, app.housekeeping, logger)
		if err != nil {
			return err
		}
		logger.Info("housekeeping scheduled", "spec", cfg.HousekeepingCron, "next", janitor.Next())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := janitor.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop housekeeping", "error", err)
		}
	}()

	logger.Info("synccircle API listening", "addr", server.Addr, "viewer_timezone", cfg.ViewerTimezone, "dst_reference", cfg.DSTReference)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx, logger); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return storage, nil
}

type wiring struct {
	handler      http.Handler
	housekeeping *housekeeping.Job
}

func newApp(cfg config.Config, storage *sqlite.Storage, logger *slog.Logger) (*wiring, error) {
	bundle, err := i18n.NewBundle()
	if err != nil {
		return nil, err
	}

	now := time.Now
	calendar := application.NewCalendarService(storage, application.CalendarServiceOptions{
		Now:            now,
		ViewerTimezone: cfg.ViewerTimezone,
		DSTReference:   cfg.Reference(),
		CacheTTL:       cfg.ViewCacheTTL,
		Logger:         logger,
	})
	circles := application.NewCircleService(storage, application.CircleServiceOptions{
		CircleIDs:       application.NewCircleCode,
		MemberIDs:       application.NewID,
		Now:             now,
		DefaultTimezone: cfg.ViewerTimezone,
		Logger:          logger,
	})
	members := application.NewMemberService(storage, storage, application.MemberServiceOptions{
		Notifier:        calendar,
		IDGenerator:     application.NewID,
		Now:             now,
		DefaultTimezone: cfg.ViewerTimezone,
		Logger:          logger,
	})
	events := application.NewEventService(storage, storage, storage, application.EventServiceOptions{
		Notifier:    calendar,
		IDGenerator: application.NewID,
		Now:         now,
		Logger:      logger,
	})

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Circles:  httptransport.NewCircleHandler(circles, logger),
		Members:  httptransport.NewMemberHandler(members, logger),
		Events:   httptransport.NewEventHandler(events, logger),
		Calendar: httptransport.NewCalendarHandler(calendar, logger),
		Health:   httptransport.NewHealthHandler(storage, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Locale(bundle),
		},
	})

	job := housekeeping.NewJob(storage, housekeeping.Options{
		Retention: cfg.EventRetention,
		Now:       now,
		Logger:    logger,
		OnPurged:  func(int) { calendar.ResetCache() },
	})

	return &wiring{handler: handler, housekeeping: job}, nil
}
