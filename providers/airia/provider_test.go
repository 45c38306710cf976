package airia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

func newProvider(cfg providers.AiriaConfig) *Provider {
	return NewProvider(cfg, zap.NewNop())
}

func TestDeploy(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})

	dep, err := p.Deploy(context.Background(), providers.DeployRequest{
		AgentID:     "pipeline_1_task",
		Environment: "staging",
		Replicas:    2,
	})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("pipeline_1_task|staging"))
	assert.Equal(t, "deploy_"+hex.EncodeToString(sum[:])[:8], dep.DeploymentID)
	assert.Equal(t, "https://pipeline_1_task.staging.agents.airia.ai", dep.Endpoint)
	assert.Equal(t, "passing", dep.HealthCheck)
	assert.Equal(t, 2, dep.Replicas)
	assert.Equal(t, "staging", dep.Environment)
}

func TestDeployIdempotentID(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})
	ctx := context.Background()
	req := providers.DeployRequest{AgentID: "svc", Environment: "production", Replicas: 3}

	first, err := p.Deploy(ctx, req)
	require.NoError(t, err)
	second, err := p.Deploy(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.DeploymentID, second.DeploymentID)

	other, err := p.Deploy(ctx, providers.DeployRequest{AgentID: "svc", Environment: "staging"})
	require.NoError(t, err)
	assert.NotEqual(t, first.DeploymentID, other.DeploymentID)
}

func TestDeployDefaults(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})

	dep, err := p.Deploy(context.Background(), providers.DeployRequest{AgentID: "svc"})
	require.NoError(t, err)
	assert.Equal(t, "staging", dep.Environment)
	assert.Equal(t, 1, dep.Replicas)

	dep, err = p.Deploy(context.Background(), providers.DeployRequest{AgentID: "svc", Replicas: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, dep.Replicas)
}

func TestDeployFailingEnvironment(t *testing.T) {
	p := newProvider(providers.AiriaConfig{FailingEnvironments: []string{"chaos"}})
	ctx := context.Background()

	dep, err := p.Deploy(ctx, providers.DeployRequest{AgentID: "svc", Environment: "chaos"})
	require.NoError(t, err)
	assert.Equal(t, "failing", dep.HealthCheck)

	dep, err = p.Deploy(ctx, providers.DeployRequest{AgentID: "svc", Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "passing", dep.HealthCheck)
}

func TestDeployMissingAgentID(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})

	_, err := p.Deploy(context.Background(), providers.DeployRequest{Environment: "staging"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestDeployCancelledContext(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Deploy(ctx, providers.DeployRequest{AgentID: "svc"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Deployments())
}

func TestStats(t *testing.T) {
	p := newProvider(providers.AiriaConfig{FailingEnvironments: []string{"chaos"}})
	ctx := context.Background()

	for _, env := range []string{"staging", "staging", "chaos"} {
		_, err := p.Deploy(ctx, providers.DeployRequest{AgentID: "svc", Environment: env})
		require.NoError(t, err)
	}

	stats := p.Stats()
	assert.Equal(t, 3, stats.TotalDeployments)
	assert.Equal(t, 2, stats.Healthy)
	assert.Equal(t, 1, stats.Failing)
	assert.Equal(t, map[string]int{"staging": 2, "chaos": 1}, stats.ByEnvironment)
}

func TestDeploymentsReturnsCopy(t *testing.T) {
	p := newProvider(providers.AiriaConfig{})
	_, err := p.Deploy(context.Background(), providers.DeployRequest{AgentID: "svc"})
	require.NoError(t, err)

	deployments := p.Deployments()
	require.Len(t, deployments, 1)
	deployments[0].Environment = "mutated"
	assert.Equal(t, "staging", p.Deployments()[0].Environment)
}
