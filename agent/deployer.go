package agent

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// Deployer places the task's artifact into a serving environment via
// the deployment provider.
type Deployer struct {
	base *Agent
	deps Deps
}

// Base returns the underlying agent.
func (d *Deployer) Base() *Agent { return d.base }

// Score rates a deployment result.
func (d *Deployer) Score(task *types.Task, result *types.Result) float64 {
	return Score(types.RoleDeployer, task, result)
}

// Execute deploys the task. The environment comes from task metadata
// when set, otherwise from the configured default; replica counts below
// one fall back to the default of two.
func (d *Deployer) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	env := d.deps.DeployEnvironment
	if override := task.Metadata["environment"]; override != "" {
		env = override
	}
	if env == "" {
		env = "staging"
	}
	replicas := d.deps.DeployReplicas
	if replicas < 1 {
		replicas = 2
	}

	dep, err := d.deps.Deployment.Deploy(ctx, providers.DeployRequest{
		AgentID:     task.ID,
		Environment: env,
		Replicas:    replicas,
	})
	if err != nil {
		return nil, types.NewExecutionError(string(types.RoleDeployer), err).
			WithProvider(d.deps.Deployment.Name())
	}

	return &types.Result{
		Role:    types.RoleDeployer,
		Summary: fmt.Sprintf("deployed to %s with %d replicas (%s)", dep.Environment, dep.Replicas, dep.HealthCheck),
		Deployment: &types.DeploymentResult{
			Deployed:     true,
			DeploymentID: dep.DeploymentID,
			Endpoint:     dep.Endpoint,
			HealthCheck:  dep.HealthCheck,
			Replicas:     dep.Replicas,
			Environment:  dep.Environment,
		},
	}, nil
}
