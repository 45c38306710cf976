package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentfoundry/types"
)

// scriptedAgent returns pre-planned scores (or errors) per attempt.
type scriptedAgent struct {
	base    *Agent
	scores  []float64
	errs    []error
	attempt int
}

func newScriptedAgent(role types.Role, scores []float64, errs []error) *scriptedAgent {
	return &scriptedAgent{
		base:   NewAgent("scripted", role, 0, "", nil),
		scores: scores,
		errs:   errs,
	}
}

func (s *scriptedAgent) Base() *Agent { return s.base }

func (s *scriptedAgent) Execute(ctx context.Context, _ *types.Task) (*types.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := s.attempt
	s.attempt++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &types.Result{Role: s.base.Role(), Summary: fmt.Sprintf("attempt %d", i+1)}, nil
}

func (s *scriptedAgent) Score(_ *types.Task, _ *types.Result) float64 {
	// Execute has already advanced attempt past the scored one.
	return s.scores[s.attempt-1]
}

func newTestRunner(t *testing.T, cfg ReflexionConfig) *ReflexionRunner {
	t.Helper()
	r, err := NewReflexionRunner(cfg, nil, nil)
	require.NoError(t, err)
	return r
}

func TestReflexionRunnerConfigValidation(t *testing.T) {
	_, err := NewReflexionRunner(ReflexionConfig{MaxLoops: 0, Threshold: 0.5}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))

	_, err = NewReflexionRunner(ReflexionConfig{MaxLoops: 3, Threshold: 1.5}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))

	_, err = NewReflexionRunner(ReflexionConfig{MaxLoops: 3, Threshold: -0.1}, nil, nil)
	require.Error(t, err)
}

func TestReflexionRunImprovesUntilThreshold(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.5, 0.5, 0.5, 0.5, 0.9}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 5, Threshold: 0.85})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.LoopsExecuted)
	assert.True(t, res.ThresholdMet)
	assert.False(t, res.BudgetExhausted)
	assert.InDelta(t, 0.9, res.BestScore, 1e-9)
	require.NotNil(t, res.Best)
	assert.Equal(t, "attempt 5", res.Best.Summary)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, StatusCompleted, ag.base.Status())
	assert.Equal(t, 5, ag.base.Memory().Len())
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5, 0.9}, ag.base.Memory().Scores())
}

func TestReflexionRunEarlyExitOnFirstLoop(t *testing.T) {
	ag := newScriptedAgent(types.RoleArchitect, []float64{0.95}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 5, Threshold: 0.75})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.LoopsExecuted)
	assert.True(t, res.ThresholdMet)
	assert.False(t, res.BudgetExhausted)
	assert.Equal(t, 1, ag.base.Memory().Len())
	// No adjustment happened: the strategy is untouched.
	assert.Equal(t, DefaultStrategy(types.RoleArchitect), ag.base.Strategy())
}

func TestReflexionRunBudgetExhaustedKeepsBest(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.6, 0.4, 0.5}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.99})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.LoopsExecuted)
	assert.False(t, res.ThresholdMet)
	assert.True(t, res.BudgetExhausted)
	assert.InDelta(t, 0.6, res.BestScore, 1e-9)
	assert.Equal(t, "attempt 1", res.Best.Summary)
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestReflexionRunTieKeepsEarliestBest(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.7, 0.7, 0.7}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.99})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "attempt 1", res.Best.Summary)
	assert.InDelta(t, 0.7, res.BestScore, 1e-9)
}

func TestReflexionRunFailedIterationScoresZeroAndContinues(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder,
		[]float64{0, 0.9},
		[]error{errors.New("provider hiccup"), nil})
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 5, Threshold: 0.85})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.LoopsExecuted)
	assert.True(t, res.ThresholdMet)
	assert.InDelta(t, 0.9, res.BestScore, 1e-9)
	assert.Equal(t, []float64{0, 0.9}, ag.base.Memory().Scores())

	entries := ag.base.Memory().Entries()
	assert.Contains(t, entries[0].Result, "provider hiccup")
}

func TestReflexionRunAllIterationsFailed(t *testing.T) {
	boom := errors.New("boom")
	ag := newScriptedAgent(types.RoleCoder, []float64{0, 0, 0}, []error{boom, boom, boom})
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.75})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err, "a fully failed run is still a completed flow, not an error")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Nil(t, res.Best)
	assert.Zero(t, res.BestScore)
	assert.Equal(t, 3, res.LoopsExecuted)
	assert.Contains(t, res.FailureReason, "all 3 iterations failed")
	assert.Contains(t, res.FailureReason, "boom")
	assert.Equal(t, StatusFailed, ag.base.Status())
	assert.Equal(t, 3, ag.base.Memory().Len())
}

func TestReflexionRunSingleLoopBudget(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.2}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 1, Threshold: 0.75})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.LoopsExecuted)
	assert.False(t, res.ThresholdMet)
	assert.True(t, res.BudgetExhausted)
	assert.InDelta(t, 0.2, res.BestScore, 1e-9)
	// A single-loop budget never adjusts the strategy.
	assert.Equal(t, DefaultStrategy(types.RoleCoder), ag.base.Strategy())
}

func TestReflexionRunAdjustsStrategyOnDecline(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.8, 0.8, 0.2, 0.2, 0.2}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 5, Threshold: 1.0})

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)
	assert.True(t, res.BudgetExhausted)

	st := ag.base.Strategy()
	assert.InDelta(t, 0.55, st.Param("temperature", -1), 1e-9,
		"the declining trend after loop 4 raises temperature once")
	assert.Equal(t, "defensive", st.Mode, "declining trend rotates the mode")
}

func TestReflexionRunAdjustsStrategyOnImprovement(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.2, 0.2, 0.8, 0.8, 0.8}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 5, Threshold: 1.0})

	_, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	st := ag.base.Strategy()
	assert.Greater(t, st.Param("thoroughness", -1), 0.5)
	assert.Equal(t, "idiomatic", st.Mode, "improvement never rotates the mode")
}

func TestReflexionRunCancelledContext(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.9}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.75})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := runner.Run(ctx, ag, &types.Task{ID: "t1"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, ag.base.Status())
}

func TestReflexionRunRejectsBusyAgent(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.9}, nil)
	require.NoError(t, ag.base.Transition(StatusRunning))
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.75})

	_, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidTransition, types.GetErrorCode(err))
}

func TestReflexionRunAgentIsReusableAfterCompletion(t *testing.T) {
	ag := newScriptedAgent(types.RoleCoder, []float64{0.9, 0.95}, nil)
	runner := newTestRunner(t, ReflexionConfig{MaxLoops: 3, Threshold: 0.75})

	_, err := runner.Run(context.Background(), ag, &types.Task{ID: "t1"})
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), ag, &types.Task{ID: "t2"})
	require.NoError(t, err)
	assert.InDelta(t, 0.95, res.BestScore, 1e-9)
	assert.Equal(t, 2, ag.base.Memory().Len(), "memory persists across runs")
}
