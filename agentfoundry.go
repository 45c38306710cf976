// Package agentfoundry provides a top-level convenience entry point for
// assembling a pipeline orchestrator with minimal boilerplate.
//
// New defaults to the deterministic provider doubles (fastino, raindrop,
// airia), so a bare call runs pipelines end to end without credentials.
//
// Usage:
//
//	import foundry "github.com/BaSui01/agentfoundry"
//
//	orch, err := foundry.New()
//	orch, err := foundry.New(foundry.WithLogger(logger), foundry.WithMaxLoops(3))
//	orch, err := foundry.New(foundry.WithInference(myProvider))
package agentfoundry

import (
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/orchestrator"
	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/providers/airia"
	"github.com/BaSui01/agentfoundry/providers/fastino"
	"github.com/BaSui01/agentfoundry/providers/raindrop"
)

// Option configures the orchestrator created by New.
type Option func(*options)

type options struct {
	cfg        orchestrator.Config
	inference  providers.InferenceProvider
	healing    providers.HealingProvider
	deployment providers.DeploymentProvider
	noHealing  bool
	logger     *zap.Logger
	orchOpts   []orchestrator.Option
}

// WithInference sets a pre-built inference provider. Defaults to the
// canned fastino engine.
func WithInference(p providers.InferenceProvider) Option {
	return func(o *options) { o.inference = p }
}

// WithHealing sets a pre-built healing provider. Defaults to the canned
// raindrop engine.
func WithHealing(p providers.HealingProvider) Option {
	return func(o *options) { o.healing = p }
}

// WithoutHealing drops the healing provider; the coder stage then skips
// its heal pass.
func WithoutHealing() Option {
	return func(o *options) { o.noHealing = true }
}

// WithDeployment sets a pre-built deployment provider. Defaults to the
// canned airia engine.
func WithDeployment(p providers.DeploymentProvider) Option {
	return func(o *options) { o.deployment = p }
}

// WithConfig replaces the whole orchestrator configuration. Later
// tuning options still apply on top of it.
func WithConfig(cfg orchestrator.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithMaxLoops sets the reflexion loop budget per stage.
func WithMaxLoops(n int) Option {
	return func(o *options) { o.cfg.Reflexion.MaxLoops = n }
}

// WithThreshold sets the early-exit score threshold per stage.
func WithThreshold(t float64) Option {
	return func(o *options) { o.cfg.Reflexion.Threshold = t }
}

// WithEvolutionThreshold sets the overall score at which a completed
// pipeline spawns child agents.
func WithEvolutionThreshold(t float64) Option {
	return func(o *options) { o.cfg.EvolutionThreshold = t }
}

// WithRecorder wires best-effort pipeline persistence.
func WithRecorder(r orchestrator.Recorder) Option {
	return func(o *options) { o.orchOpts = append(o.orchOpts, orchestrator.WithRecorder(r)) }
}

// WithObserver wires execution metrics.
func WithObserver(obs orchestrator.Observer) Option {
	return func(o *options) { o.orchOpts = append(o.orchOpts, orchestrator.WithObserver(obs)) }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New assembles a ready-to-use Orchestrator. Providers not supplied
// explicitly fall back to the deterministic doubles.
func New(opts ...Option) (*orchestrator.Orchestrator, error) {
	o := &options{
		cfg: orchestrator.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.inference == nil {
		o.inference = fastino.NewProvider(providers.FastinoConfig{}, o.logger)
	}
	if o.healing == nil && !o.noHealing {
		o.healing = raindrop.NewProvider(providers.RaindropConfig{}, o.logger)
	}
	if o.noHealing {
		o.healing = nil
	}
	if o.deployment == nil {
		o.deployment = airia.NewProvider(providers.AiriaConfig{}, o.logger)
	}

	deps := agent.Deps{
		Inference:  o.inference,
		Healing:    o.healing,
		Deployment: o.deployment,
		Logger:     o.logger,
	}
	return orchestrator.New(o.cfg, deps, o.orchOpts...)
}
