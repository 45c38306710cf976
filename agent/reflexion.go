package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/types"
)

// ReflexionConfig bounds a reflexion run.
type ReflexionConfig struct {
	// MaxLoops is the iteration budget; at least 1.
	MaxLoops int `yaml:"max_loops" json:"max_loops"`
	// Threshold is the early-exit score in [0, 1]. An iteration scoring
	// at or above it ends the run immediately.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// DefaultReflexionConfig returns the standard budget.
func DefaultReflexionConfig() ReflexionConfig {
	return ReflexionConfig{MaxLoops: 5, Threshold: 0.75}
}

// Validate checks the configuration bounds.
func (c ReflexionConfig) Validate() error {
	if c.MaxLoops < 1 {
		return types.NewInvalidConfigError("reflexion max_loops must be >= 1")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return types.NewInvalidConfigError("reflexion threshold must be in [0, 1]")
	}
	return nil
}

// ReflexionResult is the outcome of one reflexion run.
type ReflexionResult struct {
	AgentID   string     `json:"agent_id"`
	Role      types.Role `json:"role"`
	Status    Status     `json:"status"`

	// Best is the highest-scoring result across iterations; ties keep
	// the earliest. Nil only when every iteration failed to execute.
	Best      *types.Result `json:"best,omitempty"`
	BestScore float64       `json:"best_score"`

	LoopsExecuted int  `json:"loops_executed"`
	ThresholdMet  bool `json:"threshold_met"`
	// BudgetExhausted reports that the run used its full budget without
	// meeting the threshold. Informational; the run still completes
	// with its best result.
	BudgetExhausted bool `json:"budget_exhausted"`

	FailureReason string        `json:"failure_reason,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// ReflexionRunner drives a role agent through the execute, score,
// remember, adjust loop.
type ReflexionRunner struct {
	cfg    ReflexionConfig
	meta   *MetaLearner
	logger *zap.Logger
	now    func() time.Time
}

// NewReflexionRunner validates the configuration and builds a runner.
// A nil meta-learner gets the default tuning.
func NewReflexionRunner(cfg ReflexionConfig, meta *MetaLearner, logger *zap.Logger) (*ReflexionRunner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if meta == nil {
		meta = NewMetaLearner(DefaultMetaLearnerConfig(), logger)
	}
	return &ReflexionRunner{
		cfg:    cfg,
		meta:   meta,
		logger: logger.With(zap.String("component", "reflexion")),
		now:    time.Now,
	}, nil
}

// WithClock overrides the runner clock. Test hook.
func (r *ReflexionRunner) WithClock(now func() time.Time) *ReflexionRunner {
	if now != nil {
		r.now = now
	}
	return r
}

// Run executes up to MaxLoops iterations, keeping the best result and
// adjusting the agent's strategy between iterations. Failed iterations
// are remembered with a zero score and the loop continues; the run
// itself fails only when every iteration failed. The error return is
// reserved for context cancellation and illegal agent states.
func (r *ReflexionRunner) Run(ctx context.Context, ra RoleAgent, task *types.Task) (*ReflexionResult, error) {
	base := ra.Base()
	if err := base.Transition(StatusRunning); err != nil {
		return nil, err
	}
	start := r.now()

	log := r.logger.With(
		zap.String("agent_id", base.ID()),
		zap.String("role", string(base.Role())),
		zap.String("task_id", task.ID))
	log.Info("reflexion run started",
		zap.Int("max_loops", r.cfg.MaxLoops),
		zap.Float64("threshold", r.cfg.Threshold))

	var (
		best         *types.Result
		bestScore    float64
		loops        int
		thresholdMet bool
		lastErr      error
	)

	for i := 1; i <= r.cfg.MaxLoops; i++ {
		if err := ctx.Err(); err != nil {
			_ = base.Transition(StatusFailed)
			return nil, err
		}

		res, err := ra.Execute(ctx, task)
		loops = i
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				_ = base.Transition(StatusFailed)
				return nil, err
			}
			lastErr = err
			base.Memory().Append(taskLabel(task), "execute", err.Error(), 0)
			log.Warn("iteration failed",
				zap.Int("loop", i),
				zap.Error(err))
		} else {
			score := ra.Score(task, res)
			base.Memory().Append(taskLabel(task), "execute", res.Summary, score)
			if best == nil || score > bestScore {
				best = res
				bestScore = score
			}
			log.Debug("iteration scored",
				zap.Int("loop", i),
				zap.Float64("score", score),
				zap.Float64("best", bestScore))
			if score >= r.cfg.Threshold {
				thresholdMet = true
				break
			}
		}

		if i < r.cfg.MaxLoops {
			base.AdjustStrategy(func(st *Strategy) {
				r.meta.Apply(base.Role(), st, base.Memory())
			})
		}
	}

	out := &ReflexionResult{
		AgentID:       base.ID(),
		Role:          base.Role(),
		Best:          best,
		BestScore:     bestScore,
		LoopsExecuted: loops,
		ThresholdMet:  thresholdMet,
		Duration:      r.now().Sub(start),
	}

	if best == nil {
		out.Status = StatusFailed
		out.FailureReason = fmt.Sprintf("all %d iterations failed: %v", loops, lastErr)
		_ = base.Transition(StatusFailed)
		log.Warn("reflexion run failed", zap.Int("loops", loops), zap.Error(lastErr))
		return out, nil
	}

	out.Status = StatusCompleted
	out.BudgetExhausted = !thresholdMet && loops == r.cfg.MaxLoops
	_ = base.Transition(StatusCompleted)
	log.Info("reflexion run completed",
		zap.Int("loops", loops),
		zap.Float64("best_score", bestScore),
		zap.Bool("threshold_met", thresholdMet),
		zap.Bool("budget_exhausted", out.BudgetExhausted),
		zap.Duration("duration", out.Duration))
	return out, nil
}

func taskLabel(t *types.Task) string {
	if t.ID != "" {
		return t.ID
	}
	return t.Description
}
