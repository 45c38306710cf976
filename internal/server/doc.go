// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package server hosts the foundry's operational HTTP surface.

Manager wraps net/http.Server with a non-blocking Start, asynchronous
error reporting and graceful Shutdown on SIGINT/SIGTERM. OpsHandler
builds the routes the manager serves:

	/health, /healthz   liveness
	/readyz             readiness with registered dependency probes
	/metrics            Prometheus exposition from the metrics collector

Dependency probes implement HealthCheck; PingCheck adapts plain ping
functions (Redis, database) into checks. The package carries no domain
routes: pipelines are driven through the orchestrator API or the
cluster queue, not over HTTP.
*/
package server
