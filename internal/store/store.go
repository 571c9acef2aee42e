package store

import (
	"context"
	"fmt"
)

// Repository persists the session history as a unit.
// Implementations: FileStore (JSON array) and DB (SQLite).
type Repository interface {
	LoadSessions(ctx context.Context) ([]Session, error)
	SaveSessions(ctx context.Context, sessions []Session) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (StorageStats, error)
	Close() error
}

// Storage drivers accepted by OpenRepository
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// OpenRepository opens the history backend named by driver at path
func OpenRepository(driver, path string) (Repository, error) {
	switch driver {
	case DriverJSON, "":
		return NewFileStore(path), nil
	case DriverSQLite:
		return Open(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

var (
	_ Repository = (*FileStore)(nil)
	_ Repository = (*DB)(nil)
)
