package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MigrationState is one schema migration and whether it has been applied.
type MigrationState struct {
	Version int64
	Path    string
	Applied bool
}

// MigrationManager applies the embedded schema migrations of the movie
// database. Each manager owns its goose provider, so several databases can
// be migrated side by side.
type MigrationManager struct {
	provider *goose.Provider
	log      *logrus.Logger
}

func NewMigrationManager(db *sql.DB, log *logrus.Logger) (*MigrationManager, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return &MigrationManager{provider: provider, log: log}, nil
}

// Up applies every pending migration.
func (m *MigrationManager) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.logResult(r)
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back the latest applied migration.
func (m *MigrationManager) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if r != nil {
		m.logResult(r)
	}
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			return errors.New("no migration to roll back")
		}
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// Reset rolls back every applied migration, dropping all movie data.
func (m *MigrationManager) Reset(ctx context.Context) error {
	results, err := m.provider.DownTo(ctx, 0)
	for _, r := range results {
		m.logResult(r)
	}
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	m.log.WithField("rolled_back", len(results)).Info("Database reset completed")
	return nil
}

// Status lists all known migrations in version order.
func (m *MigrationManager) Status(ctx context.Context) ([]MigrationState, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

// Version returns the highest applied migration, 0 for an empty database.
func (m *MigrationManager) Version(ctx context.Context) (int64, error) {
	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

func (m *MigrationManager) logResult(r *goose.MigrationResult) {
	entry := m.log.WithFields(logrus.Fields{
		"version":   r.Source.Version,
		"direction": r.Direction,
		"took":      r.Duration,
	})
	if r.Error != nil {
		entry.WithError(r.Error).Error("Migration failed")
		return
	}
	entry.Debug("Migration applied")
}
