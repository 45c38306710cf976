package cluster

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 👷 Role worker
// =============================================================================

// AgentFactory builds the stage agent a worker runs per task. The
// default is agent.NewRoleAgent; tests inject scripted agents.
type AgentFactory func(id string, role types.Role, generation int, parentID string, deps agent.Deps) (agent.RoleAgent, error)

// WorkerConfig tunes one worker.
type WorkerConfig struct {
	// Reflexion bounds each task's reflexion loop.
	Reflexion agent.ReflexionConfig
	// MetaLearner tunes the between-iteration strategy adjustment.
	MetaLearner agent.MetaLearnerConfig
	// Factory overrides agent construction. Nil means agent.NewRoleAgent.
	Factory AgentFactory
	// Observer receives task milestones. Nil means none.
	Observer Observer
}

// Worker claims envelopes for one role and processes each with a fresh
// generation-0 agent. The claim loop heartbeats every cycle and keeps
// going through errors; only context cancellation stops it.
type Worker struct {
	id       string
	role     types.Role
	queue    *Queue
	deps     agent.Deps
	runner   *agent.ReflexionRunner
	factory  AgentFactory
	observer Observer
	logger   *zap.Logger
	now      func() time.Time

	taskSeq atomic.Uint64
}

// NewWorker validates the configuration and builds a worker bound to
// one role queue.
func NewWorker(id string, role types.Role, queue *Queue, deps agent.Deps, cfg WorkerConfig) (*Worker, error) {
	if id == "" {
		return nil, types.NewInvalidConfigError("worker id is required")
	}
	if !role.Valid() {
		return nil, types.NewInvalidConfigError(fmt.Sprintf("unknown role %q", role))
	}
	if queue == nil {
		return nil, types.NewInvalidConfigError("worker queue is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("component", "cluster_worker"),
		zap.String("worker_id", id),
		zap.String("role", string(role)))
	deps.Logger = logger

	runner, err := agent.NewReflexionRunner(cfg.Reflexion, agent.NewMetaLearner(cfg.MetaLearner, logger), logger)
	if err != nil {
		return nil, err
	}

	factory := cfg.Factory
	if factory == nil {
		factory = agent.NewRoleAgent
	}
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}

	return &Worker{
		id:       id,
		role:     role,
		queue:    queue,
		deps:     deps,
		runner:   runner,
		factory:  factory,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// ID returns the worker id.
func (w *Worker) ID() string { return w.id }

// Role returns the role this worker serves.
func (w *Worker) Role() types.Role { return w.role }

// Run claims and processes envelopes until ctx ends. Claim and publish
// errors are counted and logged; the loop continues.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	claimTimeout := w.queue.Config().ClaimTimeout
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.queue.Heartbeat(ctx, w.id); err != nil && ctx.Err() == nil {
			w.logger.Warn("heartbeat failed", zap.Error(err))
		}

		env, err := w.queue.Claim(ctx, w.role, claimTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.countError(ctx)
			w.logger.Warn("claim failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if env == nil {
			continue
		}

		res := w.process(ctx, env)

		status := "completed"
		if res.Failed {
			status = "failed"
		}
		w.observer.TaskProcessed(w.role, status)
		_ = w.queue.IncrCounter(ctx, w.id, "processed")
		if res.Failed {
			_ = w.queue.IncrCounter(ctx, w.id, "failed")
		}

		if err := w.queue.PublishResult(ctx, res); err != nil && ctx.Err() == nil {
			w.countError(ctx)
			w.logger.Error("result not published",
				zap.String("task_id", res.TaskID),
				zap.Error(err))
		}
	}
}

// process runs one envelope through a fresh generation-0 agent. It
// always returns a result; execution problems become a failed result,
// never a lost task.
func (w *Worker) process(ctx context.Context, env *Envelope) *WorkResult {
	started := w.now()
	agentID := fmt.Sprintf("%s_a%d", w.id, w.taskSeq.Add(1))
	res := &WorkResult{
		TaskID:   env.ID,
		WorkerID: w.id,
		Role:     w.role,
		AgentID:  agentID,
	}
	finish := func() {
		end := w.now()
		res.Duration = end.Sub(started)
		res.CompletedAt = end
	}

	log := w.logger.With(zap.String("task_id", env.ID))
	log.Info("task claimed")

	ra, err := w.factory(agentID, w.role, 0, "", w.deps)
	if err != nil {
		res.Failed = true
		res.Error = err.Error()
		finish()
		log.Error("agent construction failed", zap.Error(err))
		return res
	}

	runCtx := types.WithTraceID(ctx, env.ID)
	if env.Task != nil {
		runCtx = types.WithTaskID(runCtx, env.Task.ID)
	}
	ref, err := w.runner.Run(runCtx, ra, env.Task)
	if err != nil {
		res.Failed = true
		res.Error = err.Error()
		finish()
		log.Error("reflexion run failed", zap.Error(err))
		return res
	}

	res.Score = ref.BestScore
	res.Loops = ref.LoopsExecuted
	res.ThresholdMet = ref.ThresholdMet
	res.Failed = ref.Status == agent.StatusFailed
	res.Best = ref.Best
	if res.Failed && ref.FailureReason != "" {
		res.Error = ref.FailureReason
	}
	finish()

	log.Info("task processed",
		zap.Float64("score", res.Score),
		zap.Int("loops", res.Loops),
		zap.Bool("failed", res.Failed),
		zap.Duration("duration", res.Duration))
	return res
}

func (w *Worker) countError(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_ = w.queue.IncrCounter(ctx, w.id, "errors")
}
