package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound reports whether the base has a connection. Repositories built from a
// zero Base fail fast instead of panicking inside gorm.
func (b Base) Bound() bool {
	return b.db != nil
}

// MonthBucket renders a SQL expression formatting a timestamp column as
// YYYY-MM in UTC for the bound dialect. Postgres is assumed when unbound.
func (b Base) MonthBucket(column string) string {
	if b.db != nil && b.db.Dialector != nil && b.db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
	return fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM')", column)
}
