// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package storage persists pipeline history to a relational database.

Four tables back the foundry: pipelines, stage_executions,
evolution_nodes and healing_actions. Store opens the configured
database (sqlite for development, postgres or mysql for production)
and implements orchestrator.Recorder, so every pipeline, stage and
spawned evolution node lands in the database as it happens. The
orchestrator downgrades save errors to warnings; losing the database
never fails a pipeline.

The sqlite driver auto-migrates the schema on Open. Postgres and mysql
schemas are managed by the embedded migrations under
internal/migration, applied with foundry migrate.

PoolManager tunes the connection pool (open/idle limits, lifetimes),
runs a periodic health check and offers transaction helpers with
retry-on-transient-failure semantics.
*/
package storage
