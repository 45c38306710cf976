package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/evolution"
	"github.com/BaSui01/agentfoundry/types"
)

// Config tunes pipeline execution and evolution.
type Config struct {
	// Reflexion bounds every stage's reflexion loop.
	Reflexion agent.ReflexionConfig `yaml:"reflexion" json:"reflexion"`
	// MetaLearner tunes the between-iteration strategy adjustment.
	MetaLearner agent.MetaLearnerConfig `yaml:"meta_learner" json:"meta_learner"`
	// EvolutionThreshold is the overall score at or above which the
	// pipeline spawns one child per stage agent.
	EvolutionThreshold float64 `yaml:"evolution_threshold" json:"evolution_threshold"`
	// ContinueOnFailure keeps running downstream stages after a stage
	// hard-fails; the failed stage contributes a zero score. When
	// false, the first hard failure aborts the pipeline.
	ContinueOnFailure bool `yaml:"continue_on_failure" json:"continue_on_failure"`
	// StageWeights biases the overall score; missing roles weigh 1.
	StageWeights map[types.Role]float64 `yaml:"stage_weights" json:"stage_weights"`
	// DeployEnvironment and DeployReplicas configure the deployer
	// stage's defaults.
	DeployEnvironment string `yaml:"deploy_environment" json:"deploy_environment"`
	DeployReplicas    int    `yaml:"deploy_replicas" json:"deploy_replicas"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Reflexion:          agent.DefaultReflexionConfig(),
		MetaLearner:        agent.DefaultMetaLearnerConfig(),
		EvolutionThreshold: 0.85,
		ContinueOnFailure:  true,
		DeployEnvironment:  "staging",
		DeployReplicas:     2,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if err := c.Reflexion.Validate(); err != nil {
		return err
	}
	if err := c.MetaLearner.Validate(); err != nil {
		return err
	}
	if c.EvolutionThreshold < 0 || c.EvolutionThreshold > 1 {
		return types.NewInvalidConfigError("evolution_threshold must be in [0, 1]")
	}
	var sum float64
	for role, w := range c.StageWeights {
		if !role.Valid() {
			return types.NewInvalidConfigError(fmt.Sprintf("stage_weights: unknown role %q", role))
		}
		if w < 0 {
			return types.NewInvalidConfigError(fmt.Sprintf("stage_weights: weight for %s must be >= 0", role))
		}
		sum += w
	}
	if len(c.StageWeights) == len(types.PipelineRoles()) && sum == 0 {
		return types.NewInvalidConfigError("stage_weights must not all be zero")
	}
	return nil
}

// AgentFactory builds the stage agent for a role. The default is
// agent.NewRoleAgent; tests inject factories producing scripted agents.
type AgentFactory func(id string, role types.Role, generation int, parentID string, deps agent.Deps) (agent.RoleAgent, error)

// Recorder persists pipeline progress. All calls are best effort: the
// orchestrator logs recorder errors and keeps going.
type Recorder interface {
	SavePipeline(ctx context.Context, info PipelineInfo) error
	SaveStage(ctx context.Context, pipelineID string, stage StageResult) error
	SaveEvolutionNode(ctx context.Context, node evolution.Node) error
}

// Observer receives execution milestones, typically for metrics.
type Observer interface {
	PipelineFinished(status PipelineStatus, score float64, duration time.Duration)
	StageFinished(role types.Role, score float64, loops int)
	ChildrenSpawned(count int)
	TreeSize(total int)
}

type noopObserver struct{}

func (noopObserver) PipelineFinished(PipelineStatus, float64, time.Duration) {}
func (noopObserver) StageFinished(types.Role, float64, int)                  {}
func (noopObserver) ChildrenSpawned(int)                                     {}
func (noopObserver) TreeSize(int)                                            {}

// Orchestrator owns pipelines, their agents and the evolution tree. One
// orchestrator serves a whole process; independent pipelines run
// concurrently on disjoint agent sets and meet only at the tree.
type Orchestrator struct {
	mu sync.RWMutex

	cfg    Config
	deps   agent.Deps
	tree   *evolution.Tree
	runner *agent.ReflexionRunner

	pipelines     map[string]*pipeline
	pipelineOrder []string
	agents        map[string]agent.RoleAgent
	agentOrder    []string

	factory  AgentFactory
	recorder Recorder
	observer Observer
	tracer   oteltrace.Tracer

	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithTree shares an existing evolution tree instead of a fresh one.
func WithTree(t *evolution.Tree) Option {
	return func(o *Orchestrator) { o.tree = t }
}

// WithAgentFactory overrides how stage agents are built.
func WithAgentFactory(f AgentFactory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithRecorder wires pipeline persistence.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithObserver wires execution metrics.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTracer enables per-pipeline and per-stage spans.
func WithTracer(t oteltrace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithClock overrides the clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDSource overrides pipeline id generation. Test hook.
func WithIDSource(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// New validates the configuration and builds an orchestrator. The deps
// bundle supplies providers and the logger for every agent it creates.
func New(cfg Config, deps agent.Deps, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DeployEnvironment != "" {
		deps.DeployEnvironment = cfg.DeployEnvironment
	}
	if cfg.DeployReplicas > 0 {
		deps.DeployReplicas = cfg.DeployReplicas
	}

	o := &Orchestrator{
		cfg:       cfg,
		deps:      deps,
		pipelines: make(map[string]*pipeline),
		agents:    make(map[string]agent.RoleAgent),
		factory:   agent.NewRoleAgent,
		observer:  noopObserver{},
		logger:    logger.With(zap.String("component", "orchestrator")),
		now:       time.Now,
		newID:     func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tree == nil {
		o.tree = evolution.NewTree(logger)
	}

	runner, err := agent.NewReflexionRunner(cfg.Reflexion, agent.NewMetaLearner(cfg.MetaLearner, logger), logger)
	if err != nil {
		return nil, err
	}
	o.runner = runner.WithClock(o.now)
	return o, nil
}

// Tree exposes the evolution tree for read-side wiring.
func (o *Orchestrator) Tree() *evolution.Tree { return o.tree }

// CreatePipeline builds the task and five fresh generation-0 stage
// agents, and registers the pipeline in created state.
func (o *Orchestrator) CreatePipeline(ctx context.Context, description string, requirements []string) (string, error) {
	id := "pipeline_" + o.newID()
	task := &types.Task{
		ID:           id + "_task",
		Description:  description,
		Requirements: append([]string(nil), requirements...),
		Language:     "go",
		Metadata:     map[string]string{},
	}

	roles := types.PipelineRoles()
	built := make([]agent.RoleAgent, 0, len(roles))
	ids := make([]string, 0, len(roles))
	for _, role := range roles {
		agentID := fmt.Sprintf("%s_%s", id, role)
		ra, err := o.factory(agentID, role, 0, "", o.deps)
		if err != nil {
			return "", err
		}
		built = append(built, ra)
		ids = append(ids, agentID)
	}

	o.mu.Lock()
	for _, agentID := range ids {
		if _, exists := o.agents[agentID]; exists {
			o.mu.Unlock()
			return "", types.NewError(types.ErrIDCollision, fmt.Sprintf("agent id %q already exists", agentID))
		}
	}
	for i, ra := range built {
		o.agents[ids[i]] = ra
		o.agentOrder = append(o.agentOrder, ids[i])
	}
	p := &pipeline{
		id:           id,
		description:  description,
		requirements: append([]string(nil), requirements...),
		status:       PipelineCreated,
		task:         task,
		agentIDs:     ids,
		createdAt:    o.now(),
	}
	o.pipelines[id] = p
	o.pipelineOrder = append(o.pipelineOrder, id)
	info := p.info()
	o.mu.Unlock()

	o.logger.Info("pipeline created",
		zap.String("pipeline_id", id),
		zap.String("description", description))
	o.savePipeline(ctx, info)
	return id, nil
}

// ExecutePipeline runs the five stages in order, chaining each stage's
// artifacts into the next stage's task. A hard-failed stage contributes
// a zero score; whether downstream stages still run follows
// ContinueOnFailure. Completion registers the stage agents as roots in
// the evolution tree and, when the overall score reaches the evolution
// threshold, spawns one child per stage agent.
//
// The returned result describes the run even when stages failed. The
// error return is reserved for unknown pipelines, pipelines not in
// created state, and context cancellation.
func (o *Orchestrator) ExecutePipeline(ctx context.Context, pipelineID string) (*PipelineResult, error) {
	o.mu.Lock()
	p, ok := o.pipelines[pipelineID]
	if !ok {
		o.mu.Unlock()
		return nil, types.NewPipelineNotFoundError(pipelineID)
	}
	if !canTransition(p.status, PipelineRunning) {
		o.mu.Unlock()
		return nil, types.NewError(types.ErrInvalidTransition,
			fmt.Sprintf("pipeline %q cannot start from status %q", pipelineID, p.status))
	}
	p.status = PipelineRunning
	task := p.task
	agentIDs := append([]string(nil), p.agentIDs...)
	o.mu.Unlock()

	start := o.now()
	ctx = types.WithPipelineID(ctx, pipelineID)
	var span oteltrace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "pipeline.execute")
		span.SetAttributes(attribute.String("pipeline.id", pipelineID))
		defer span.End()
	}
	log := o.logger.With(zap.String("pipeline_id", pipelineID))
	log.Info("pipeline started")

	roles := types.PipelineRoles()
	stages := make([]StageResult, 0, len(roles))
	aborted := false
	for i, role := range roles {
		agentID := agentIDs[i]
		if aborted {
			stages = append(stages, StageResult{Role: role, AgentID: agentID, Skipped: true})
			continue
		}

		o.mu.RLock()
		ra := o.agents[agentID]
		o.mu.RUnlock()
		if ra == nil {
			o.setStatus(p, PipelineFailed)
			return nil, types.NewAgentNotFoundError(agentID)
		}

		stage, err := o.runStage(ctx, role, ra, task, log)
		if err != nil {
			o.setStatus(p, PipelineFailed)
			return nil, err
		}
		stages = append(stages, stage)
		o.observer.StageFinished(role, stage.Score, stage.Reflexion.LoopsExecuted)
		o.saveStage(ctx, pipelineID, stage)

		if stage.Failed {
			if !o.cfg.ContinueOnFailure {
				aborted = true
			}
			continue
		}
		applyArtifacts(task, stage.Reflexion.Best)
	}

	overall := overallScore(stages, o.cfg.StageWeights)
	status := deriveStatus(stages, aborted)
	o.registerRoots(ctx, pipelineID, stages, log)

	evolved := overall >= o.cfg.EvolutionThreshold
	var children []string
	var spawnFailures []SpawnFailure
	if evolved {
		children, spawnFailures = o.spawnChildren(ctx, pipelineID, stages, log)
	}

	end := o.now()
	result := &PipelineResult{
		PipelineID:    pipelineID,
		Status:        status,
		OverallScore:  overall,
		Stages:        stages,
		Evolved:       evolved,
		Children:      children,
		SpawnFailures: spawnFailures,
		Duration:      end.Sub(start),
		CompletedAt:   end,
	}

	o.mu.Lock()
	p.status = status
	p.result = result
	info := p.info()
	o.mu.Unlock()

	if span != nil {
		span.SetAttributes(
			attribute.String("pipeline.status", string(status)),
			attribute.Float64("pipeline.overall_score", overall),
			attribute.Bool("pipeline.evolved", evolved))
	}
	o.observer.PipelineFinished(status, overall, result.Duration)
	o.observer.TreeSize(o.tree.Stats().TotalNodes)
	o.savePipeline(ctx, info)

	log.Info("pipeline finished",
		zap.String("status", string(status)),
		zap.Float64("overall_score", overall),
		zap.Bool("evolved", evolved),
		zap.Int("children", len(children)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// ExecutePipelines runs independent pipelines concurrently. The first
// error cancels the remaining runs; results collected before the error
// are still returned.
func (o *Orchestrator) ExecutePipelines(ctx context.Context, pipelineIDs []string) (map[string]*PipelineResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(map[string]*PipelineResult, len(pipelineIDs))

	for _, id := range pipelineIDs {
		id := id
		g.Go(func() error {
			res, err := o.ExecutePipeline(ctx, id)
			if err != nil {
				return fmt.Errorf("pipeline %s: %w", id, err)
			}
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) runStage(ctx context.Context, role types.Role, ra agent.RoleAgent, task *types.Task, log *zap.Logger) (StageResult, error) {
	var span oteltrace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "pipeline.stage."+string(role))
		defer span.End()
	}

	ref, err := o.runner.Run(ctx, ra, task)
	if err != nil {
		if span != nil {
			span.SetAttributes(attribute.String("error", err.Error()))
		}
		return StageResult{}, err
	}

	stage := StageResult{
		Role:      role,
		AgentID:   ra.Base().ID(),
		Score:     ref.BestScore,
		Failed:    ref.Status == agent.StatusFailed,
		Reflexion: ref,
	}
	if span != nil {
		span.SetAttributes(
			attribute.Float64("stage.score", stage.Score),
			attribute.Int("stage.loops", ref.LoopsExecuted),
			attribute.Bool("stage.failed", stage.Failed))
	}
	log.Info("stage finished",
		zap.String("role", string(role)),
		zap.Float64("score", stage.Score),
		zap.Int("loops", ref.LoopsExecuted),
		zap.Bool("failed", stage.Failed))
	return stage, nil
}

// deriveStatus maps the stage outcomes to a pipeline status. An abort
// always fails the pipeline; otherwise no failure is completed, all
// failures is failed, and anything between is partial.
func deriveStatus(stages []StageResult, aborted bool) PipelineStatus {
	if aborted {
		return PipelineFailed
	}
	executed, failed := 0, 0
	for _, st := range stages {
		if st.Skipped {
			continue
		}
		executed++
		if st.Failed {
			failed++
		}
	}
	switch {
	case executed == 0 || failed == executed:
		return PipelineFailed
	case failed == 0:
		return PipelineCompleted
	default:
		return PipelinePartial
	}
}

// registerRoots records every executed stage agent as a generation-0
// node carrying its stage score. Registration failures are logged and
// never fail the pipeline.
func (o *Orchestrator) registerRoots(ctx context.Context, pipelineID string, stages []StageResult, log *zap.Logger) {
	for _, st := range stages {
		if st.Skipped {
			continue
		}
		meta := map[string]string{
			"pipeline": pipelineID,
			"role":     string(st.Role),
			"score":    strconv.FormatFloat(st.Score, 'f', 4, 64),
		}
		if err := o.tree.AddNode(st.AgentID, 0, st.Score, "", meta); err != nil {
			log.Error("root registration failed",
				zap.String("agent_id", st.AgentID),
				zap.Error(err))
			continue
		}
		o.saveNode(ctx, st.AgentID, log)
	}
}

// spawnChildren creates one child per executed stage agent. Each spawn
// is independent: a collision or registration failure for one child is
// recorded and the others still commit.
func (o *Orchestrator) spawnChildren(ctx context.Context, pipelineID string, stages []StageResult, log *zap.Logger) ([]string, []SpawnFailure) {
	var children []string
	var failures []SpawnFailure

	fail := func(parentID, childID string, code types.ErrorCode, msg string) {
		failures = append(failures, SpawnFailure{ParentID: parentID, ChildID: childID, Code: code, Message: msg})
		log.Warn("spawn failed",
			zap.String("parent_id", parentID),
			zap.String("child_id", childID),
			zap.String("code", string(code)),
			zap.String("reason", msg))
	}

	for _, st := range stages {
		if st.Skipped {
			continue
		}

		o.mu.Lock()
		parent, ok := o.agents[st.AgentID]
		if !ok {
			o.mu.Unlock()
			fail(st.AgentID, "", types.ErrAgentNotFound, fmt.Sprintf("parent agent %q not registered", st.AgentID))
			continue
		}
		base := parent.Base()
		childGen := base.Generation() + 1
		childID := fmt.Sprintf("%s_gen%d", base.ID(), childGen)

		if _, exists := o.agents[childID]; exists || o.tree.Has(childID) {
			o.mu.Unlock()
			fail(base.ID(), childID, types.ErrIDCollision, fmt.Sprintf("derived id %q already exists", childID))
			continue
		}

		child, err := o.factory(childID, base.Role(), childGen, base.ID(), o.deps)
		if err != nil {
			o.mu.Unlock()
			fail(base.ID(), childID, types.GetErrorCode(err), err.Error())
			continue
		}
		child.Base().SetStrategy(base.Strategy())

		meta := map[string]string{
			"pipeline": pipelineID,
			"role":     string(base.Role()),
		}
		if err := o.tree.AddNode(childID, childGen, st.Score, base.ID(), meta); err != nil {
			o.mu.Unlock()
			fail(base.ID(), childID, types.GetErrorCode(err), err.Error())
			continue
		}
		o.agents[childID] = child
		o.agentOrder = append(o.agentOrder, childID)
		o.mu.Unlock()

		children = append(children, childID)
		o.saveNode(ctx, childID, log)
		log.Info("child spawned",
			zap.String("parent_id", base.ID()),
			zap.String("child_id", childID),
			zap.Int("generation", childGen))
	}

	if len(children) > 0 {
		o.observer.ChildrenSpawned(len(children))
	}
	return children, failures
}

func (o *Orchestrator) setStatus(p *pipeline, status PipelineStatus) {
	o.mu.Lock()
	p.status = status
	o.mu.Unlock()
}

// GetPipeline returns a snapshot of one pipeline.
func (o *Orchestrator) GetPipeline(pipelineID string) (PipelineInfo, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.pipelines[pipelineID]
	if !ok {
		return PipelineInfo{}, types.NewPipelineNotFoundError(pipelineID)
	}
	return p.info(), nil
}

// ListPipelines returns snapshots of all pipelines in creation order.
func (o *Orchestrator) ListPipelines() []PipelineInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PipelineInfo, 0, len(o.pipelineOrder))
	for _, id := range o.pipelineOrder {
		out = append(out, o.pipelines[id].info())
	}
	return out
}

// GetAgent returns a snapshot of one agent.
func (o *Orchestrator) GetAgent(agentID string) (agent.Snapshot, error) {
	o.mu.RLock()
	ra, ok := o.agents[agentID]
	o.mu.RUnlock()
	if !ok {
		return agent.Snapshot{}, types.NewAgentNotFoundError(agentID)
	}
	return ra.Base().Snapshot(), nil
}

// ListAgents returns snapshots of all agents in registration order.
func (o *Orchestrator) ListAgents() []agent.Snapshot {
	o.mu.RLock()
	ids := append([]string(nil), o.agentOrder...)
	agents := make([]agent.RoleAgent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, o.agents[id])
	}
	o.mu.RUnlock()

	out := make([]agent.Snapshot, 0, len(agents))
	for _, ra := range agents {
		out = append(out, ra.Base().Snapshot())
	}
	return out
}

// EvolutionSnapshot returns a consistent copy of the whole tree.
func (o *Orchestrator) EvolutionSnapshot() evolution.Snapshot {
	return o.tree.Snapshot()
}

// Lineage returns an agent's ancestry, root first.
func (o *Orchestrator) Lineage(agentID string) ([]evolution.Node, error) {
	return o.tree.Lineage(agentID)
}

// TopPerformers returns the n best tree nodes by score.
func (o *Orchestrator) TopPerformers(n int) []evolution.Node {
	return o.tree.TopPerformers(n)
}

// TreeStats aggregates the evolution tree.
func (o *Orchestrator) TreeStats() evolution.Stats {
	return o.tree.Stats()
}

func (o *Orchestrator) savePipeline(ctx context.Context, info PipelineInfo) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.SavePipeline(ctx, info); err != nil {
		o.logger.Warn("pipeline record not saved",
			zap.String("pipeline_id", info.ID),
			zap.Error(err))
	}
}

func (o *Orchestrator) saveStage(ctx context.Context, pipelineID string, stage StageResult) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.SaveStage(ctx, pipelineID, stage); err != nil {
		o.logger.Warn("stage record not saved",
			zap.String("pipeline_id", pipelineID),
			zap.String("role", string(stage.Role)),
			zap.Error(err))
	}
}

func (o *Orchestrator) saveNode(ctx context.Context, nodeID string, log *zap.Logger) {
	if o.recorder == nil {
		return
	}
	node, err := o.tree.Node(nodeID)
	if err != nil {
		return
	}
	if err := o.recorder.SaveEvolutionNode(ctx, node); err != nil {
		log.Warn("evolution node record not saved",
			zap.String("node_id", nodeID),
			zap.Error(err))
	}
}
