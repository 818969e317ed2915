package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Clark-Hu/rating-pulse/db"
)

// Migrate applies every pending migration embedded in the db package.
// A database left dirty by an interrupted run is reported, not repaired.
func Migrate(dbURL string, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(conn, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	migrationFS, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("access migrations directory: %w", err)
	}
	source, err := iofs.New(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "ratings", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at migration version %d", version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Printf("store: schema at migration version %d", version)
	return nil
}
