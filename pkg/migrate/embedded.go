package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedded embed.FS

// FS returns the embedded migrations for the given driver, rooted at the
// dialect directory.
func FS(driver string) (fs.FS, error) {
	sub := "migrations/postgres"
	if strings.EqualFold(driver, config.DBDriverSQLite) {
		sub = "migrations/sqlite"
	}
	return fs.Sub(embedded, sub)
}

// Up applies every embedded migration for driver. It does not depend on the
// working directory, so binaries and tests can call it directly.
func Up(ctx context.Context, db *sql.DB, driver string) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("db is required")
	}

	fsys, err := FS(driver)
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}

	dialect := goose.DialectPostgres
	if strings.EqualFold(driver, config.DBDriverSQLite) {
		dialect = goose.DialectSQLite3
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}
