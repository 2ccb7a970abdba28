// Package repomanager vends dialect-specific repositories and runs the
// embedded goose migrations for them.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/heartwall/internal/dbx"
	"github.com/dmitrijs2005/heartwall/internal/server/migrations"
	"github.com/dmitrijs2005/heartwall/internal/server/repositories/memories"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Memories returns a memories.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Memories(db dbx.DBTX) memories.Repository {
	return memories.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.Dir(dialect))
}

// RunMigrations applies the embedded PostgreSQL migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "pgx")
}
