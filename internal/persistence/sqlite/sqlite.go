// Package sqlite persists circles, members and events in SQLite through
// modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/synccircle/internal/persistence"
	"github.com/example/synccircle/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage bundles the connection pool with every repository.
type Storage struct {
	pool *ConnectionPool

	*CircleRepository
	*MemberRepository
	*EventRepository
}

var (
	_ persistence.CircleRepository = (*Storage)(nil)
	_ persistence.MemberRepository = (*Storage)(nil)
	_ persistence.EventRepository  = (*Storage)(nil)
	_ persistence.SnapshotReader   = (*Storage)(nil)
)

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:             pool,
		CircleRepository: NewCircleRepository(pool),
		MemberRepository: NewMemberRepository(pool),
		EventRepository:  NewEventRepository(pool),
	}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(s.pool.DB(), migrationsFS, "migrations", logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// LoadCircleSnapshot reads the circle, its members and its events inside one
// read transaction so that the three agree with each other.
func (s *Storage) LoadCircleSnapshot(ctx context.Context, circleID string) (persistence.CircleSnapshot, error) {
	var snapshot persistence.CircleSnapshot
	mapper := NewErrorMapper()
	base := NewQueryHelper(s.pool)

	err := s.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		helper := base.With(tx)

		circle, err := getCircle(ctx, helper, mapper, circleID)
		if err != nil {
			return err
		}
		members, err := listMembers(ctx, helper, mapper, circleID)
		if err != nil {
			return err
		}
		events, err := listEvents(ctx, helper, mapper, circleID)
		if err != nil {
			return err
		}

		snapshot = persistence.CircleSnapshot{Circle: circle, Members: members, Events: events}
		return nil
	})
	if err != nil {
		return persistence.CircleSnapshot{}, err
	}
	return snapshot, nil
}
