package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// RoleAgent is one pipeline stage worker. Execute performs the stage's
// work on a task; Score rates a result for that stage. Execute returns
// an error only when the work itself could not be carried out (provider
// failure, cancelled context); a completed-but-poor attempt is a low
// score, not an error.
type RoleAgent interface {
	Base() *Agent
	Execute(ctx context.Context, task *types.Task) (*types.Result, error)
	Score(task *types.Task, result *types.Result) float64
}

// Deps bundles the external services role agents draw on. Only the
// providers a role actually uses are required: architect, coder and
// critic need Inference, deployer needs Deployment, executor needs
// nothing. Healing is optional for the coder.
type Deps struct {
	Inference  providers.InferenceProvider
	Healing    providers.HealingProvider
	Deployment providers.DeploymentProvider

	// DeployEnvironment is the default target environment; tasks may
	// override it via metadata.
	DeployEnvironment string
	// DeployReplicas is the default replica count, floored to 1.
	DeployReplicas int

	Logger *zap.Logger
	Now    func() time.Time
}

// NewRoleAgent builds the stage agent for the given role, validating
// that the role's required providers are present.
func NewRoleAgent(id string, role types.Role, generation int, parentID string, deps Deps) (RoleAgent, error) {
	base := NewAgent(id, role, generation, parentID, deps.Logger)
	if deps.Now != nil {
		base.WithClock(deps.Now)
	}

	switch role {
	case types.RoleArchitect:
		if deps.Inference == nil {
			return nil, types.NewInvalidConfigError("architect requires an inference provider")
		}
		return &Architect{base: base, deps: deps}, nil
	case types.RoleCoder:
		if deps.Inference == nil {
			return nil, types.NewInvalidConfigError("coder requires an inference provider")
		}
		return &Coder{base: base, deps: deps}, nil
	case types.RoleExecutor:
		return &Executor{base: base, deps: deps}, nil
	case types.RoleCritic:
		if deps.Inference == nil {
			return nil, types.NewInvalidConfigError("critic requires an inference provider")
		}
		return &Critic{base: base, deps: deps}, nil
	case types.RoleDeployer:
		if deps.Deployment == nil {
			return nil, types.NewInvalidConfigError("deployer requires a deployment provider")
		}
		return &Deployer{base: base, deps: deps}, nil
	default:
		return nil, types.NewInvalidConfigError(fmt.Sprintf("unknown role %q", role))
	}
}
