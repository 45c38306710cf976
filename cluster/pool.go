package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 🏊 Worker pool
// =============================================================================

// Observer receives cluster milestones, typically for metrics.
type Observer interface {
	QueueDepth(role types.Role, depth int64)
	TaskProcessed(role types.Role, status string)
	WorkerRestarted(role types.Role)
}

type noopObserver struct{}

func (noopObserver) QueueDepth(types.Role, int64)     {}
func (noopObserver) TaskProcessed(types.Role, string) {}
func (noopObserver) WorkerRestarted(types.Role)       {}

// WorkerStatus is one worker's health snapshot.
type WorkerStatus struct {
	WorkerID      string     `json:"worker_id"`
	Role          types.Role `json:"role"`
	Alive         bool       `json:"alive"`
	LastHeartbeat time.Time  `json:"last_heartbeat"`
	Restarts      int        `json:"restarts"`
	QueueDepth    int64      `json:"queue_depth"`
}

// PoolConfig tunes the pool's workers.
type PoolConfig struct {
	// Reflexion bounds every task's reflexion loop.
	Reflexion agent.ReflexionConfig `yaml:"reflexion" json:"reflexion"`
	// MetaLearner tunes the between-iteration strategy adjustment.
	MetaLearner agent.MetaLearnerConfig `yaml:"meta_learner" json:"meta_learner"`
	// WorkerPrefix namespaces worker ids, e.g. the host name. Worker
	// ids are "{prefix}_{role}".
	WorkerPrefix string `yaml:"worker_prefix" json:"worker_prefix"`
}

// DefaultPoolConfig returns the standard tuning.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Reflexion:    agent.DefaultReflexionConfig(),
		MetaLearner:  agent.DefaultMetaLearnerConfig(),
		WorkerPrefix: "worker",
	}
}

// Pool runs one worker per pipeline role plus a monitor that restarts
// workers whose goroutine exited or whose heartbeat went stale.
type Pool struct {
	queue    *Queue
	deps     agent.Deps
	cfg      PoolConfig
	factory  AgentFactory
	observer Observer
	logger   *zap.Logger

	mu          sync.Mutex
	slots       map[types.Role]*slot
	runCtx      context.Context
	cancel      context.CancelFunc
	monitorDone chan struct{}
	started     bool
	stopped     bool
}

// slot is one worker's run state. Restarting replaces everything but
// the worker itself, which is reusable across runs.
type slot struct {
	worker    *Worker
	cancel    context.CancelFunc
	done      chan struct{}
	restarts  int
	startedAt time.Time
}

// PoolOption customizes a Pool.
type PoolOption func(*Pool)

// WithPoolObserver wires cluster metrics.
func WithPoolObserver(obs Observer) PoolOption {
	return func(p *Pool) {
		if obs != nil {
			p.observer = obs
		}
	}
}

// WithPoolFactory overrides how stage agents are built.
func WithPoolFactory(f AgentFactory) PoolOption {
	return func(p *Pool) {
		if f != nil {
			p.factory = f
		}
	}
}

// NewPool validates the configuration and builds an idle pool. Start
// launches the workers.
func NewPool(queue *Queue, deps agent.Deps, cfg PoolConfig, opts ...PoolOption) (*Pool, error) {
	if queue == nil {
		return nil, types.NewInvalidConfigError("pool queue is required")
	}
	if err := cfg.Reflexion.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MetaLearner.Validate(); err != nil {
		return nil, err
	}
	if cfg.WorkerPrefix == "" {
		cfg.WorkerPrefix = "worker"
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		queue:    queue,
		deps:     deps,
		cfg:      cfg,
		factory:  agent.NewRoleAgent,
		observer: noopObserver{},
		logger:   logger.With(zap.String("component", "cluster_pool")),
		slots:    make(map[types.Role]*slot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start launches one worker per pipeline role and the health monitor.
// Cancelling ctx stops the pool; Shutdown does so with a drain bound.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return types.NewError(types.ErrInvalidTransition, "pool already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.runCtx = runCtx

	for _, role := range types.PipelineRoles() {
		id := fmt.Sprintf("%s_%s", p.cfg.WorkerPrefix, role)
		w, err := NewWorker(id, role, p.queue, p.deps, WorkerConfig{
			Reflexion:   p.cfg.Reflexion,
			MetaLearner: p.cfg.MetaLearner,
			Factory:     p.factory,
			Observer:    p.observer,
		})
		if err != nil {
			cancel()
			return err
		}
		p.slots[role] = p.launch(runCtx, w)
	}

	p.cancel = cancel
	p.monitorDone = make(chan struct{})
	p.started = true
	go p.monitor(runCtx)

	p.logger.Info("pool started",
		zap.Int("workers", len(p.slots)),
		zap.Duration("monitor_interval", p.queue.Config().MonitorInterval))
	return nil
}

// launch runs a worker goroutine and returns its slot.
func (p *Pool) launch(ctx context.Context, w *Worker) *slot {
	slotCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(slotCtx)
	}()
	return &slot{
		worker:    w,
		cancel:    cancel,
		done:      done,
		startedAt: time.Now(),
	}
}

// monitor periodically inspects worker health and queue depths.
func (p *Pool) monitor(ctx context.Context) {
	defer close(p.monitorDone)

	ticker := time.NewTicker(p.queue.Config().MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.inspect(ctx)
		}
	}
}

// inspect restarts dead or stale workers and reports queue depths.
func (p *Pool) inspect(ctx context.Context) {
	staleAfter := p.queue.Config().StaleAfter

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	for _, role := range types.PipelineRoles() {
		s := p.slots[role]
		if s == nil {
			continue
		}

		alive := true
		select {
		case <-s.done:
			alive = false
		default:
		}

		hb, err := p.queue.LastHeartbeat(ctx, s.worker.ID())
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("heartbeat lookup failed",
				zap.String("worker_id", s.worker.ID()),
				zap.Error(err))
		}
		stale := false
		switch {
		case !hb.IsZero():
			stale = time.Since(hb) > staleAfter
		default:
			// No heartbeat on record: the key expired or was never
			// set. Grant a fresh slot its stale window before acting.
			stale = time.Since(s.startedAt) > staleAfter
		}

		if !alive || stale {
			p.restartLocked(ctx, role, s, alive, hb)
		}

		if depth, err := p.queue.Depth(ctx, role); err == nil {
			p.observer.QueueDepth(role, depth)
		}
	}
}

// restartLocked replaces a slot's run state. The old goroutine has been
// cancelled and exits after its current claim cycle; an in-flight claim
// may fail its publish, which the worker counts as an error. The new
// run attaches to the pool lifetime, not the inspection context.
func (p *Pool) restartLocked(ctx context.Context, role types.Role, s *slot, alive bool, hb time.Time) {
	s.cancel()

	if p.runCtx == nil || p.runCtx.Err() != nil {
		return
	}

	ns := p.launch(p.runCtx, s.worker)
	ns.restarts = s.restarts + 1
	p.slots[role] = ns

	p.observer.WorkerRestarted(role)
	_ = p.queue.IncrCounter(ctx, s.worker.ID(), "restarts")
	p.logger.Warn("worker restarted",
		zap.String("worker_id", s.worker.ID()),
		zap.Bool("was_alive", alive),
		zap.Time("last_heartbeat", hb),
		zap.Int("restarts", ns.restarts))
}

// Execute submits an envelope and blocks for its result. The envelope's
// ID is filled in when empty.
func (p *Pool) Execute(ctx context.Context, env *Envelope) (*WorkResult, error) {
	if err := p.queue.Submit(ctx, env); err != nil {
		return nil, err
	}
	return p.queue.AwaitResult(ctx, env.ID)
}

// Submit enqueues an envelope without waiting for its result.
func (p *Pool) Submit(ctx context.Context, env *Envelope) error {
	return p.queue.Submit(ctx, env)
}

// Status snapshots every worker in pipeline role order.
func (p *Pool) Status(ctx context.Context) ([]WorkerStatus, error) {
	type entry struct {
		role     types.Role
		workerID string
		alive    bool
		restarts int
	}

	p.mu.Lock()
	entries := make([]entry, 0, len(p.slots))
	for _, role := range types.PipelineRoles() {
		s := p.slots[role]
		if s == nil {
			continue
		}
		alive := true
		select {
		case <-s.done:
			alive = false
		default:
		}
		entries = append(entries, entry{role: role, workerID: s.worker.ID(), alive: alive, restarts: s.restarts})
	}
	p.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(entries))
	for _, e := range entries {
		hb, err := p.queue.LastHeartbeat(ctx, e.workerID)
		if err != nil {
			return nil, err
		}
		depth, err := p.queue.Depth(ctx, e.role)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, WorkerStatus{
			WorkerID:      e.workerID,
			Role:          e.role,
			Alive:         e.alive,
			LastHeartbeat: hb,
			Restarts:      e.restarts,
			QueueDepth:    depth,
		})
	}
	return statuses, nil
}

// Shutdown stops the workers and monitor, waiting for them to exit
// until ctx expires. Workers notice cancellation at their next claim
// cycle, so allow at least the claim timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	cancel := p.cancel
	waits := make([]chan struct{}, 0, len(p.slots)+1)
	for _, s := range p.slots {
		waits = append(waits, s.done)
	}
	waits = append(waits, p.monitorDone)
	p.mu.Unlock()

	cancel()
	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.logger.Info("pool stopped")
	return nil
}
