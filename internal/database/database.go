package database

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	perrors "github.com/pkg/errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sales-record-api/internal/config"
)

// driverName maps the config driver to the registered database/sql driver.
func driverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return driver
}

// Connect opens and pings the configured database and applies pool limits.
func Connect(ctx context.Context, cfg config.Database) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, perrors.Wrapf(err, "connect to %s", cfg.Driver)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())
	return db, nil
}

// WithinTx runs fn inside a database transaction, rolling back on error or
// panic and committing otherwise. Every multi-row write in the service goes
// through here.
func WithinTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return perrors.Wrap(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// InsertID executes an insert written with ? placeholders and returns the
// generated primary key. Postgres has no LastInsertId, so the query grows a
// RETURNING clause there.
func InsertID(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	if tx.DriverName() == "pgx" {
		var id int64
		if err := tx.QueryRowContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// IsDuplicateKey reports whether err is a unique-constraint violation on
// either supported backend. The business-id generators retry on it.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
