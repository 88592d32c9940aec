package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
)

// Migration trees on disk, relative to the repository root. The embedded
// copies in embedded.go are the same files.
const (
	DefaultDir = "pkg/migrate/migrations/postgres"
	SQLiteDir  = "pkg/migrate/migrations/sqlite"
)

func isSQLite(driver string) bool {
	return strings.EqualFold(driver, config.DBDriverSQLite)
}

// DirFor returns the on-disk migration directory for driver.
func DirFor(driver string) string {
	if isSQLite(driver) {
		return SQLiteDir
	}
	return DefaultDir
}

// DialectFor maps a config driver name onto the goose dialect.
func DialectFor(driver string) string {
	if isSQLite(driver) {
		return string(goose.DialectSQLite3)
	}
	return string(goose.DialectPostgres)
}

func prepare(db *sql.DB, dialect, dir string) error {
	switch {
	case db == nil:
		return errors.New("db is required")
	case dir == "":
		return errors.New("dir is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command (up, down, status, ...) against dir. goose
// prints status output to stdout itself.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string, args ...string) error {
	if err := prepare(db, dialect, dir); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at target, a
// YYYYMMDDHHMMSS version string.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir, target string) error {
	version, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	if err := prepare(db, dialect, dir); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < version:
		err = goose.UpToContext(ctx, db, dir, version)
	case current > version:
		err = goose.DownToContext(ctx, db, dir, version)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
	}
	return nil
}
