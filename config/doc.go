// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

// Package config provides configuration management for Agent Foundry.
//
// Configuration is assembled from defaults, an optional YAML file, and
// FOUNDRY_* environment variable overrides, in that order, then validated.
// The loaded Config is read-only for the lifetime of the process.
package config
