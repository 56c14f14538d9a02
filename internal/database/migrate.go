package database

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed migrations/postgres/*.sql migrations/mysql/*.sql
var migrationFS embed.FS

// Migrate applies all pending schema migrations for the given driver
// (postgres or mysql). Each migration file holds a single statement so the
// same flow works on both backends.
func Migrate(db *sqlx.DB, driver string) error {
	src, err := iofs.New(migrationFS, "migrations/"+driver)
	if err != nil {
		return errors.Wrap(err, "load embedded migrations")
	}

	var target migratedb.Driver
	switch driver {
	case "postgres":
		target, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	case "mysql":
		target, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	default:
		return errors.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return errors.Wrap(err, "init migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return errors.Wrap(err, "init migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
