package db

import "embed"

// MigrationFS holds the schema migrations under migrations/.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
