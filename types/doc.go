// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type definitions for Agent Foundry.

# Overview

types is the lowest-level common package of the module. It depends on
nothing but the standard library so that agent, evolution, orchestrator,
cluster and cmd can all import it without cycles. Every contract shared
across packages (roles, task and result payloads, error codes) lives
here.

# Core types

  - Role / PipelineRoles: the closed set of pipeline roles in stage order
  - Task: pipeline work item with accumulated stage artifacts
  - Result: tagged per-role stage result
  - Error / ErrorCode: structured error chain with Retryable and Provider markers

# Capabilities

  - Context propagation: WithTraceID / WithPipelineID / WithTaskID
  - Error tooling: GetErrorCode / IsCode / IsRetryable
  - Common constructors: NewExecutionError / NewInvalidConfigError / ...
*/
package types
