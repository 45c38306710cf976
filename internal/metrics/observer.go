package metrics

import (
	"time"

	"github.com/BaSui01/agentfoundry/cluster"
	"github.com/BaSui01/agentfoundry/orchestrator"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 👁️ Orchestrator observer
// =============================================================================

// PipelineObserver adapts a Collector to the orchestrator's Observer
// interface so pipeline milestones land in Prometheus.
type PipelineObserver struct {
	collector *Collector
}

var _ orchestrator.Observer = (*PipelineObserver)(nil)

// NewPipelineObserver wraps the collector for orchestrator wiring.
func NewPipelineObserver(c *Collector) *PipelineObserver {
	return &PipelineObserver{collector: c}
}

// PipelineFinished records a finished pipeline.
func (o *PipelineObserver) PipelineFinished(status orchestrator.PipelineStatus, score float64, duration time.Duration) {
	o.collector.RecordPipeline(string(status), score, duration)
}

// StageFinished records a finished stage.
func (o *PipelineObserver) StageFinished(role types.Role, score float64, loops int) {
	o.collector.RecordStage(string(role), score, loops)
}

// ChildrenSpawned records spawned child agents.
func (o *PipelineObserver) ChildrenSpawned(count int) {
	o.collector.RecordChildrenSpawned(count)
}

// TreeSize updates the evolution tree size gauge.
func (o *PipelineObserver) TreeSize(total int) {
	o.collector.SetTreeSize(total)
}

// =============================================================================
// 👁️ Cluster observer
// =============================================================================

// ClusterObserver adapts a Collector to the cluster's Observer
// interface so queue depths and worker milestones land in Prometheus.
type ClusterObserver struct {
	collector *Collector
}

var _ cluster.Observer = (*ClusterObserver)(nil)

// NewClusterObserver wraps the collector for pool wiring.
func NewClusterObserver(c *Collector) *ClusterObserver {
	return &ClusterObserver{collector: c}
}

// QueueDepth updates a role queue's depth gauge.
func (o *ClusterObserver) QueueDepth(role types.Role, depth int64) {
	o.collector.SetQueueDepth(string(role), depth)
}

// TaskProcessed records a processed worker task.
func (o *ClusterObserver) TaskProcessed(role types.Role, status string) {
	o.collector.RecordWorkerTask(string(role), status)
}

// WorkerRestarted records a worker restart.
func (o *ClusterObserver) WorkerRestarted(role types.Role) {
	o.collector.RecordWorkerRestart(string(role))
}
