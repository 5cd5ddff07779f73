// Package migrations compiles the gateway's SQL migration files into
// the binary, so a deployed emberd needs no SQL files on disk.
//
// Files are named YYYYMMDD_HHMMSS_description.sql and applied in name
// order. Migrations are forward-only; see the database package.
package migrations

import (
	"embed"

	"github.com/emberhome/ember-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}
