package store

import "embed"

// MigrationsFS embeds the raw SQL migration files so the migrate
// subcommand can run them via golang-migrate's iofs source without
// shipping a separate migrations directory alongside the binary.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
