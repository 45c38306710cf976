// Copyright (c) AgentFoundry Authors.
// Licensed under the MIT License.

/*
Package metrics collects the foundry Prometheus metrics.

A Collector owns a private prometheus.Registry and registers every
metric under one namespace (conventionally "foundry"):

  - pipeline counters, duration and overall-score histograms
  - per-role stage counters, score and reflexion-loop histograms
  - evolution child-spawn counter and tree-size gauge
  - cluster queue-depth gauge, worker task and restart counters

Handler exposes the registry in Prometheus exposition format for the
ops server. PipelineObserver and ClusterObserver adapt the collector
to the orchestrator's and the cluster pool's observer interfaces.
*/
package metrics
