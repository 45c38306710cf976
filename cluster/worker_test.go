package cluster

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/types"
)

// fakeAgent returns a fixed score, or fails every attempt.
type fakeAgent struct {
	base  *agent.Agent
	score float64
	err   error
}

func (f *fakeAgent) Base() *agent.Agent { return f.base }

func (f *fakeAgent) Execute(_ context.Context, _ *types.Task) (*types.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Result{Role: f.base.Role(), Summary: "done"}, nil
}

func (f *fakeAgent) Score(*types.Task, *types.Result) float64 { return f.score }

// fixedFactory builds fakeAgents with one scripted outcome.
func fixedFactory(score float64, execErr error) AgentFactory {
	return func(id string, role types.Role, generation int, parentID string, deps agent.Deps) (agent.RoleAgent, error) {
		base := agent.NewAgent(id, role, generation, parentID, deps.Logger)
		return &fakeAgent{base: base, score: score, err: execErr}, nil
	}
}

func quickWorkerConfig(factory AgentFactory) WorkerConfig {
	return WorkerConfig{
		Reflexion:   agent.ReflexionConfig{MaxLoops: 2, Threshold: 0.75},
		MetaLearner: agent.DefaultMetaLearnerConfig(),
		Factory:     factory,
	}
}

// startWorker runs the worker until test cleanup.
func startWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	})
}

func TestNewWorker_Validation(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())
	deps := agent.Deps{Logger: zap.NewNop()}
	cfg := quickWorkerConfig(fixedFactory(0.9, nil))

	_, err := NewWorker("", types.RoleCoder, q, deps, cfg)
	assert.Error(t, err)

	_, err = NewWorker("w1", "alchemist", q, deps, cfg)
	assert.Error(t, err)

	_, err = NewWorker("w1", types.RoleCoder, nil, deps, cfg)
	assert.Error(t, err)

	_, err = NewWorker("w1", types.RoleCoder, q, deps, WorkerConfig{
		Reflexion:   agent.ReflexionConfig{MaxLoops: 0},
		MetaLearner: agent.DefaultMetaLearnerConfig(),
	})
	assert.Error(t, err)
}

func TestWorker_ProcessesTask(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())
	ctx := context.Background()

	w, err := NewWorker("w1", types.RoleCoder, q, agent.Deps{Logger: zap.NewNop()},
		quickWorkerConfig(fixedFactory(0.9, nil)))
	require.NoError(t, err)
	startWorker(t, w)

	env := &Envelope{Role: types.RoleCoder, Task: testTask()}
	require.NoError(t, q.Submit(ctx, env))

	awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := q.AwaitResult(awaitCtx, env.ID)
	require.NoError(t, err)

	assert.Equal(t, env.ID, res.TaskID)
	assert.Equal(t, "w1", res.WorkerID)
	assert.Equal(t, types.RoleCoder, res.Role)
	assert.Contains(t, res.AgentID, "w1_a")
	assert.InDelta(t, 0.9, res.Score, 1e-9)
	assert.Equal(t, 1, res.Loops) // threshold met on the first loop
	assert.True(t, res.ThresholdMet)
	assert.False(t, res.Failed)
	require.NotNil(t, res.Best)
	assert.False(t, res.CompletedAt.IsZero())

	counters, err := q.Counters(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters["processed"])
	assert.Zero(t, counters["failed"])

	hb, err := q.LastHeartbeat(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, hb.IsZero())
}

func TestWorker_FreshAgentPerTask(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())
	ctx := context.Background()

	w, err := NewWorker("w1", types.RoleExecutor, q, agent.Deps{Logger: zap.NewNop()},
		quickWorkerConfig(fixedFactory(0.9, nil)))
	require.NoError(t, err)
	startWorker(t, w)

	agentIDs := make(map[string]bool)
	for i := 0; i < 2; i++ {
		env := &Envelope{Role: types.RoleExecutor, Task: testTask()}
		require.NoError(t, q.Submit(ctx, env))

		awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		res, err := q.AwaitResult(awaitCtx, env.ID)
		cancel()
		require.NoError(t, err)
		agentIDs[res.AgentID] = true
	}
	assert.Len(t, agentIDs, 2)
}

func TestWorker_FailedTask(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())
	ctx := context.Background()

	w, err := NewWorker("w2", types.RoleCritic, q, agent.Deps{Logger: zap.NewNop()},
		quickWorkerConfig(fixedFactory(0, errors.New("model overloaded"))))
	require.NoError(t, err)
	startWorker(t, w)

	env := &Envelope{Role: types.RoleCritic, Task: testTask()}
	require.NoError(t, q.Submit(ctx, env))

	awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := q.AwaitResult(awaitCtx, env.ID)
	require.NoError(t, err)

	assert.True(t, res.Failed)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 2, res.Loops) // full budget, every attempt failed
	assert.Zero(t, res.Score)

	counters, err := q.Counters(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters["processed"])
	assert.Equal(t, int64(1), counters["failed"])
}

func TestWorker_FactoryError(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())
	ctx := context.Background()

	broken := func(id string, role types.Role, generation int, parentID string, deps agent.Deps) (agent.RoleAgent, error) {
		return nil, fmt.Errorf("no provider for %s", role)
	}
	w, err := NewWorker("w3", types.RoleDeployer, q, agent.Deps{Logger: zap.NewNop()},
		quickWorkerConfig(broken))
	require.NoError(t, err)
	startWorker(t, w)

	env := &Envelope{Role: types.RoleDeployer, Task: testTask()}
	require.NoError(t, q.Submit(ctx, env))

	awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := q.AwaitResult(awaitCtx, env.ID)
	require.NoError(t, err)

	assert.True(t, res.Failed)
	assert.Contains(t, res.Error, "no provider")
}

func TestWorker_StopsOnCancel(t *testing.T) {
	_, q := setupQueue(t, testClusterConfig())

	w, err := NewWorker("w4", types.RoleArchitect, q, agent.Deps{Logger: zap.NewNop()},
		quickWorkerConfig(fixedFactory(0.5, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
