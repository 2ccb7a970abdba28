package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/memories"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager backs single-node deployments with an embedded database.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Memories(db dbx.DBTX) memories.Repository {
	return memories.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3")
}
