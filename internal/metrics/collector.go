// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Metrics collector
// =============================================================================

// Collector registers and records the foundry Prometheus metrics.
// All metrics live on the collector's own Registry so that tests and
// embedding applications never collide on the global default registry.
type Collector struct {
	registry *prometheus.Registry

	// Pipeline metrics
	pipelinesTotal   *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	pipelineScore    prometheus.Histogram

	// Stage metrics
	stagesTotal *prometheus.CounterVec
	stageScore  *prometheus.HistogramVec
	stageLoops  *prometheus.HistogramVec

	// Evolution metrics
	childrenSpawned prometheus.Counter
	treeSize        prometheus.Gauge

	// Cluster metrics
	queueDepth     *prometheus.GaugeVec
	workerTasks    *prometheus.CounterVec
	workerRestarts *prometheus.CounterVec

	logger *zap.Logger
}

// scoreBuckets covers the [0, 1] score range in 0.1 steps.
var scoreBuckets = prometheus.LinearBuckets(0, 0.1, 11)

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// Pipeline metrics
	c.pipelinesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_total",
			Help:      "Total number of finished pipelines",
		},
		[]string{"status"},
	)

	c.pipelineDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.pipelineScore = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_score",
			Help:      "Overall pipeline score distribution",
			Buckets:   scoreBuckets,
		},
	)

	// Stage metrics
	c.stagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_total",
			Help:      "Total number of finished pipeline stages",
		},
		[]string{"role"},
	)

	c.stageScore = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_score",
			Help:      "Stage score distribution",
			Buckets:   scoreBuckets,
		},
		[]string{"role"},
	)

	c.stageLoops = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_reflexion_loops",
			Help:      "Reflexion loops executed per stage",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"role"},
	)

	// Evolution metrics
	c.childrenSpawned = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolution_children_spawned_total",
			Help:      "Total number of child agents spawned",
		},
	)

	c.treeSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evolution_tree_size",
			Help:      "Number of nodes in the evolution tree",
		},
	)

	// Cluster metrics
	c.queueDepth = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cluster_queue_depth",
			Help:      "Pending tasks per role queue",
		},
		[]string{"role"},
	)

	c.workerTasks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_worker_tasks_total",
			Help:      "Total number of tasks processed by cluster workers",
		},
		[]string{"role", "status"},
	)

	c.workerRestarts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_worker_restarts_total",
			Help:      "Total number of cluster worker restarts",
		},
		[]string{"role"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Registry returns the collector's private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// 🎯 Pipeline metrics
// =============================================================================

// RecordPipeline records one finished pipeline.
func (c *Collector) RecordPipeline(status string, score float64, duration time.Duration) {
	c.pipelinesTotal.WithLabelValues(status).Inc()
	c.pipelineDuration.Observe(duration.Seconds())
	c.pipelineScore.Observe(score)
}

// RecordStage records one finished pipeline stage.
func (c *Collector) RecordStage(role string, score float64, loops int) {
	c.stagesTotal.WithLabelValues(role).Inc()
	c.stageScore.WithLabelValues(role).Observe(score)
	c.stageLoops.WithLabelValues(role).Observe(float64(loops))
}

// =============================================================================
// 🧬 Evolution metrics
// =============================================================================

// RecordChildrenSpawned records spawned child agents.
func (c *Collector) RecordChildrenSpawned(count int) {
	c.childrenSpawned.Add(float64(count))
}

// SetTreeSize updates the evolution tree size gauge.
func (c *Collector) SetTreeSize(total int) {
	c.treeSize.Set(float64(total))
}

// =============================================================================
// ⚙️ Cluster metrics
// =============================================================================

// SetQueueDepth updates the pending-task gauge for one role queue.
func (c *Collector) SetQueueDepth(role string, depth int64) {
	c.queueDepth.WithLabelValues(role).Set(float64(depth))
}

// RecordWorkerTask records one task processed by a cluster worker.
func (c *Collector) RecordWorkerTask(role, status string) {
	c.workerTasks.WithLabelValues(role, status).Inc()
}

// RecordWorkerRestart records a cluster worker restart.
func (c *Collector) RecordWorkerRestart(role string) {
	c.workerRestarts.WithLabelValues(role).Inc()
}
