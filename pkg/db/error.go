package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSerializationErr classifies transient conflicts worth retrying.
func IsSerializationErr(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	// PostgreSQL 40001 / 40P01
	if strings.Contains(message, "could not serialize access") ||
		strings.Contains(message, "deadlock detected") {
		return true
	}
	// SQLite busy writer
	if strings.Contains(message, "database is locked") ||
		strings.Contains(message, "SQLITE_BUSY") {
		return true
	}
	return false
}
