// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

// Package evolution maintains the forest of agent lineages: one node
// per agent instance, one edge per spawn. The Tree serializes all
// mutations behind a write lock and validates every registration fully
// before committing, so concurrent pipelines can spawn children without
// ever exposing a half-registered lineage. Queries cover ancestry
// (Lineage), depth slices (Generation), ranking (TopPerformers) and
// whole-forest snapshots.
package evolution
