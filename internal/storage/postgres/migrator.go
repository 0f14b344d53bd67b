package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

const (
	migrationsDir   = "sql/migrations"
	migrationsTable = "schema_migrations"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus описывает состояние схемы.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Latest: последняя версия среди встроенных миграций.
	Latest uint
}

// Pending сообщает, что есть неприменённые миграции.
func (s MigrationStatus) Pending() bool {
	return s.Version < s.Latest
}

// MigrateUp применяет up-миграции. steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	if steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", steps)
	}
	return s.withMigrate(ctx, func(m *migrate.Migrate) error {
		if steps == 0 {
			return m.Up()
		}
		return m.Steps(steps)
	})
}

// MigrateDown откатывает миграции. steps<=0 интерпретируется как 1 шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withMigrate(ctx, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// MigrationStatus возвращает текущую версию схемы.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	latest, err := latestMigrationVersion(migrationsFS)
	if err != nil {
		return MigrationStatus{}, err
	}
	status := MigrationStatus{Latest: latest}
	err = s.withMigrate(ctx, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		status.Version = version
		status.Dirty = dirty
		return nil
	})
	return status, err
}

// withMigrate открывает отдельное подключение: migrate.Close закрывает переданный *sql.DB.
func (s *Store) withMigrate(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	m, err := newMigrate(db, s.logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			s.logger.WithFields(log.Fields{
				"source_error": srcErr,
				"db_error":     dbErr,
			}).Warn("close migrate instance")
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return ctx.Err()
}

func newMigrate(db *sql.DB, logger *log.Entry) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("init migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	m.Log = migrateLogger{entry: logger}
	return m, nil
}

// latestMigrationVersion проходит встроенные миграции и проверяет пары up/down.
func latestMigrationVersion(fsys fs.FS) (uint, error) {
	src, err := iofs.New(fsys, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("load embedded migrations: %w", err)
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		if err := checkMigrationPair(src, version); err != nil {
			return 0, err
		}
		next, err := src.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", version, err)
		}
		version = next
	}
}

func checkMigrationPair(src source.Driver, version uint) error {
	up, _, err := src.ReadUp(version)
	if err != nil {
		return fmt.Errorf("migration %d must have both up and down files: %w", version, err)
	}
	_ = up.Close()
	down, _, err := src.ReadDown(version)
	if err != nil {
		return fmt.Errorf("migration %d must have both up and down files: %w", version, err)
	}
	_ = down.Close()
	return nil
}

// migrateLogger направляет вывод golang-migrate в logrus.
type migrateLogger struct {
	entry *log.Entry
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.entry.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.entry.Logger.IsLevelEnabled(log.DebugLevel)
}
