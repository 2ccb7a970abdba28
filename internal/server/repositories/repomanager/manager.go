package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/memories"
)

// Supported metadata store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Memories(db dbx.DBTX) memories.Repository
}

// SQLDriverName maps a configured driver to the database/sql driver name.
func SQLDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres, "pgx":
		return "pgx", nil
	case DriverSQLite, "sqlite3":
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// New returns the RepositoryManager for the given driver.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres, "pgx":
		return &PostgresRepositoryManager{}, nil
	case DriverSQLite, "sqlite3":
		return &SQLiteRepositoryManager{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
