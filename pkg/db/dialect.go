package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Dialect picks a gorm dialector from the database URL. Postgres DSNs
// (postgres:// or postgresql://) run production; sqlite file: DSNs cover
// local single-binary deployments.
func Dialect(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://")), nil
	case strings.HasPrefix(databaseURL, "file:"):
		return sqlite.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database URL %q", databaseURL)
	}
}

// IsPostgres reports whether the open handle speaks postgres. Row locking
// clauses are only emitted on postgres; sqlite serializes writers itself.
func IsPostgres(handle *gorm.DB) bool {
	if handle == nil || handle.Dialector == nil {
		return false
	}
	return handle.Dialector.Name() == "postgres"
}
