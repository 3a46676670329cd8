// Package migrations embeds the manifest schema into the binary and
// registers it with the database package on import.
package migrations

import (
	"embed"

	"github.com/athena68/tb-performance-tests/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
