// internal/database/migrate.go
//
// Schema migrations (golang-migrate, embedded SQL).
//
// Context
// -------
// The `user` table is created by numbered files under migrations/, embedded
// into the binary so deployments never ship loose SQL.  cmd/web runs
// Migrate when `database.migrate` is true or `-migrate` is passed.
//
// Notes
// -----
// • One statement per file; the MySQL driver is used without
//   multiStatements.
// • ErrNoChange is not an error.

package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrator wraps an open pool in a *migrate.Migrate.  Closing the
// returned migrator closes db as well, so pass a dedicated pool.
func NewMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	drv, err := mysql.WithInstance(db.DB, &mysql.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, DriverName, drv)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up-migration using its own pool.
func Migrate(dsn string) error {
	if dsn == "" {
		return ErrNoDSN
	}
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", DriverName, err)
	}

	m, err := NewMigrator(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
