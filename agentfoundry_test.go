package agentfoundry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundry "github.com/BaSui01/agentfoundry"
	"github.com/BaSui01/agentfoundry/orchestrator"
	"github.com/BaSui01/agentfoundry/types"
)

func TestNew_Defaults(t *testing.T) {
	orch, err := foundry.New()
	require.NoError(t, err)
	require.NotNil(t, orch)
	assert.NotNil(t, orch.Tree())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := foundry.New(foundry.WithMaxLoops(0))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))

	_, err = foundry.New(foundry.WithEvolutionThreshold(1.5))
	require.Error(t, err)
}

func TestNew_EndToEnd(t *testing.T) {
	orch, err := foundry.New(
		foundry.WithMaxLoops(2),
		foundry.WithThreshold(0.5),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := orch.CreatePipeline(ctx, "Design and implement a request rate limiter",
		[]string{"thread-safe", "configurable burst"})
	require.NoError(t, err)

	res, err := orch.ExecutePipeline(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, id, res.PipelineID)
	assert.Equal(t, orchestrator.PipelineCompleted, res.Status)
	require.Len(t, res.Stages, len(types.PipelineRoles()))
	for i, role := range types.PipelineRoles() {
		st := res.Stages[i]
		assert.Equal(t, role, st.Role)
		assert.False(t, st.Failed)
		assert.False(t, st.Skipped)
		assert.Greater(t, st.Score, 0.0)
	}
	assert.Greater(t, res.OverallScore, 0.0)
}

func TestNew_WithoutHealing(t *testing.T) {
	orch, err := foundry.New(
		foundry.WithoutHealing(),
		foundry.WithMaxLoops(1),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := orch.CreatePipeline(ctx, "Implement a string reverser", nil)
	require.NoError(t, err)

	res, err := orch.ExecutePipeline(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, orchestrator.PipelineFailed, res.Status)
}
