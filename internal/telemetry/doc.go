// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

// Package telemetry wraps OpenTelemetry SDK initialization, providing
// the foundry with centrally configured TracerProvider and MeterProvider
// instances. When telemetry is disabled the providers stay noop and no
// external connection is made.
package telemetry
