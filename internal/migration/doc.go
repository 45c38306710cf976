// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package migration manages the foundry database schema with versioned
SQL migrations, built on golang-migrate.

Migration files are embedded per dialect under migrations/postgres and
migrations/mysql and applied through a Migrator:

	m, err := migration.NewMigratorFromDatabaseConfig(cfg.Database)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(ctx); err != nil {
		return err
	}

SQLite is deliberately absent here: sqlite stores are auto-migrated by
the storage package when opened, so only the server dialects carry
versioned schemas.

CLI wraps a Migrator with the printed output used by the foundry
migrate subcommand (up, down, goto, force, status, info).
*/
package migration
