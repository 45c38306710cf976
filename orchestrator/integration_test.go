package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/providers/airia"
	"github.com/BaSui01/agentfoundry/providers/fastino"
	"github.com/BaSui01/agentfoundry/providers/raindrop"
	"github.com/BaSui01/agentfoundry/types"
)

// e2eProviders bundles the deterministic providers a full pipeline run
// exercises.
type e2eProviders struct {
	inference  *fastino.Provider
	healing    *raindrop.Provider
	deployment *airia.Provider
}

func newE2E(t *testing.T, opts ...Option) (*Orchestrator, e2eProviders) {
	t.Helper()
	logger := zap.NewNop()
	bundle := e2eProviders{
		inference:  fastino.NewProvider(providers.FastinoConfig{CacheSize: 64}, logger),
		healing:    raindrop.NewProvider(providers.RaindropConfig{}, logger),
		deployment: airia.NewProvider(providers.AiriaConfig{}, logger),
	}
	orch, err := New(DefaultConfig(), agent.Deps{
		Inference:  bundle.inference,
		Healing:    bundle.healing,
		Deployment: bundle.deployment,
		Logger:     logger,
	}, opts...)
	require.NoError(t, err)
	return orch, bundle
}

// TestPipelineEndToEnd drives a pipeline through all five stages with
// the real deterministic providers: the architect's design feeds the
// coder, the coder's healed program feeds the executor, and so on down
// to a deployed endpoint.
func TestPipelineEndToEnd(t *testing.T) {
	orch, bundle := newE2E(t, WithIDSource(func() string { return "e2e" }))
	ctx := context.Background()

	id, err := orch.CreatePipeline(ctx, "REST API for task management", []string{"CRUD endpoints", "input validation"})
	require.NoError(t, err)
	require.Equal(t, "pipeline_e2e", id)

	result, err := orch.ExecutePipeline(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, PipelineCompleted, result.Status)
	assert.InDelta(t, 1.0, result.OverallScore, 1e-9)
	require.Len(t, result.Stages, 5)
	for _, stage := range result.Stages {
		assert.InDelta(t, 1.0, stage.Score, 1e-9, "stage %s", stage.Role)
		assert.Equal(t, 1, stage.Reflexion.LoopsExecuted, "stage %s", stage.Role)
		assert.True(t, stage.Reflexion.ThresholdMet, "stage %s", stage.Role)
	}

	design := result.Stages[0].Reflexion.Best.Design
	require.NotNil(t, design)
	assert.Equal(t, []string{"api_gateway", "task_service", "task_store"}, design.Components)
	assert.Equal(t, 3, design.Complexity)

	code := result.Stages[1].Reflexion.Best.Code
	require.NotNil(t, code)
	assert.True(t, code.Healed)
	assert.Equal(t, 1, code.IssuesFixed)
	assert.Contains(t, code.Code, "import \"fmt\"")
	assert.Equal(t, "go", code.Language)

	execution := result.Stages[2].Reflexion.Best.Execution
	require.NotNil(t, execution)
	assert.True(t, execution.Success)
	assert.Zero(t, execution.ExitCode)
	assert.Equal(t, "build ok\nall checks passed", execution.Output)

	review := result.Stages[3].Reflexion.Best.Review
	require.NotNil(t, review)
	assert.True(t, review.Passed)
	assert.InDelta(t, 1.0, review.QualityScore, 1e-9)
	assert.Len(t, review.Suggestions, 3)

	deployment := result.Stages[4].Reflexion.Best.Deployment
	require.NotNil(t, deployment)
	assert.True(t, deployment.Deployed)
	assert.Equal(t, "https://pipeline_e2e_task.staging.agents.airia.ai", deployment.Endpoint)
	assert.Equal(t, "passing", deployment.HealthCheck)
	assert.Equal(t, 2, deployment.Replicas)
	assert.True(t, strings.HasPrefix(deployment.DeploymentID, "deploy_"))

	// A perfect run crosses the evolution threshold.
	assert.True(t, result.Evolved)
	assert.Len(t, result.Children, 5)

	// Provider-side traces of the run.
	stats := bundle.inference.Stats()
	assert.Equal(t, int64(3), stats.Requests, "architect, coder and critic each call inference once")
	assert.Zero(t, stats.CacheHits)

	history := bundle.healing.History()
	require.Len(t, history, 1)
	assert.Equal(t, []string{"missing import for fmt"}, history[0].IssuesFixed)

	require.Len(t, bundle.deployment.Deployments(), 1)
}

// TestPipelinesShareProviderCache runs the same description twice; the
// second pipeline's prompts are identical, so inference comes entirely
// from the response cache.
func TestPipelinesShareProviderCache(t *testing.T) {
	var n int
	orch, bundle := newE2E(t, WithIDSource(func() string { n++; return fmt.Sprintf("cache%d", n) }))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		id, err := orch.CreatePipeline(ctx, "inventory sync worker", nil)
		require.NoError(t, err)
		result, err := orch.ExecutePipeline(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, PipelineCompleted, result.Status)
	}

	stats := bundle.inference.Stats()
	assert.Equal(t, int64(6), stats.Requests)
	assert.Equal(t, int64(3), stats.CacheHits)

	// Two coder runs healed the same canned program.
	assert.Equal(t, 2, bundle.healing.Stats().TotalSessions)
	assert.Len(t, bundle.deployment.Deployments(), 2)
}

// TestPipelineDegradedDeployEnvironment points the pipeline at an
// environment whose health checks fail; deployment still happens but
// the deployer stage scores below perfect.
func TestPipelineDegradedDeployEnvironment(t *testing.T) {
	logger := zap.NewNop()
	cfg := DefaultConfig()
	cfg.DeployEnvironment = "chaos"
	orch, err := New(cfg, agent.Deps{
		Inference:  fastino.NewProvider(providers.FastinoConfig{CacheSize: 64}, logger),
		Healing:    raindrop.NewProvider(providers.RaindropConfig{}, logger),
		Deployment: airia.NewProvider(providers.AiriaConfig{FailingEnvironments: []string{"chaos"}}, logger),
		Logger:     logger,
	})
	require.NoError(t, err)

	ctx := context.Background()
	id, err := orch.CreatePipeline(ctx, "chaos-environment rollout", nil)
	require.NoError(t, err)
	result, err := orch.ExecutePipeline(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, PipelineCompleted, result.Status)
	deployStage := result.Stages[4]
	assert.Equal(t, types.RoleDeployer, deployStage.Role)
	assert.False(t, deployStage.Failed)
	assert.InDelta(t, 0.7, deployStage.Score, 1e-9, "deployed and replicated, but health is failing")

	deployment := deployStage.Reflexion.Best.Deployment
	require.NotNil(t, deployment)
	assert.Equal(t, "failing", deployment.HealthCheck)
	assert.Equal(t, "chaos", deployment.Environment)

	// 4 x 1.0 + 0.7 over five stages.
	assert.InDelta(t, 0.94, result.OverallScore, 1e-9)
	assert.True(t, result.Evolved)
}
