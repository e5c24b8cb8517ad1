package companion

import (
	"embed"
	"io/fs"
)

// migrationsFS contains the SQL schema for the durable extension store.
// Only a sqlite tree ships; the store is extension local by design.
//
//go:embed data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
