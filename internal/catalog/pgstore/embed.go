package pgstore

import "embed"

// Migrations holds the catalog schema, applied at startup by the migrate
// command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
