package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/zimg/internal/log"
)

// MigrationsTable is the table that tracks the ledger schema version.
const MigrationsTable = "zimg_schema_migrations"

//go:embed sql/*.sql
var migrationFiles embed.FS

// MigratorConfig is the configuration of the ledger schema migrator.
type MigratorConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *MigratorConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "migrations.Migrator"})

	return nil
}

// Migrator applies the embedded saved images ledger schema.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new migrator instance.
func NewMigrator(cfg MigratorConfig) (*Migrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Migrator{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// Up brings the schema to the latest version.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "apply", func(inst *migrate.Migrate) error { return inst.Up() })
}

// Down drops the whole schema.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "revert", func(inst *migrate.Migrate) error { return inst.Down() })
}

// Version returns the current schema version, 0 when no migration has been applied.
func (m *Migrator) Version(ctx context.Context) (uint, error) {
	inst, closeFn, err := m.instance(ctx)
	defer closeFn()
	if err != nil {
		return 0, err
	}

	v, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("could not get schema version: %w", err)
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}

	return v, nil
}

func (m *Migrator) run(ctx context.Context, action string, fn func(*migrate.Migrate) error) error {
	inst, closeFn, err := m.instance(ctx)
	defer closeFn()
	if err != nil {
		return err
	}

	err = fn(inst)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Debugf("Ledger schema up to date, nothing to %s", action)
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not %s migrations: %w", action, err)
	}

	v, _, _ := inst.Version()
	m.logger.Debugf("Ledger schema migrations %sed, version %d", action, v)
	return nil
}

// instance creates a migrate instance over the embedded migrations.
func (m *Migrator) instance(_ context.Context) (instance *migrate.Migrate, closeFn func(), err error) {
	closeFn = func() {}

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return nil, closeFn, fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return nil, closeFn, fmt.Errorf("could not create fs: %w", err)
	}
	closeFn = func() {
		if err := src.Close(); err != nil {
			m.logger.Errorf("could not close migrations fs: %s", err)
		}
	}

	instance, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, closeFn, fmt.Errorf("could not create migration instance: %w", err)
	}

	return instance, closeFn, nil
}
