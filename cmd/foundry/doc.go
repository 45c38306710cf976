// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package main is the foundry executable.

# Overview

cmd/foundry operates the Agent Foundry pipeline platform. It serves the
Redis-backed cluster worker pool with an ops HTTP surface, runs one-shot
pipelines locally, and applies database migrations.

# Subcommands

  - serve: cluster worker pool + ops server (/healthz, /readyz, /metrics)
  - run: execute one pipeline with canned providers, print JSON
  - migrate: golang-migrate over the embedded postgres/mysql schemas
  - version: build info (Version, BuildTime, GitCommit via ldflags)
  - health: probe a running instance's /healthz endpoint

# Serving mode

serve loads the configuration (defaults → YAML → FOUNDRY_* env), builds
the zap logger from the log section, initializes the Prometheus
collector and optional OTLP telemetry, opens the configured database
when available (persistence stays optional), dials Redis, starts one
worker per pipeline role plus the health monitor, and exposes the ops
and metrics listeners. SIGINT/SIGTERM trigger a graceful drain: workers
stop claiming, then Redis, storage, telemetry and the HTTP servers
close.
*/
package main
