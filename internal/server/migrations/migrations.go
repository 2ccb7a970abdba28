// Package migrations embeds the goose SQL migrations for every supported
// database dialect. Each dialect lives in its own directory.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Dir returns the migration directory for a goose dialect.
func Dir(dialect string) string {
	if dialect == "sqlite3" || dialect == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}
