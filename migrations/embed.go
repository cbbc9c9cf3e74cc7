// Package migrations embeds the schema for each supported storage driver.
package migrations

import "embed"

// Postgres holds the PostgreSQL schema files under postgres/.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the SQLite schema files under sqlite/.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
