// Package airia implements a deterministic deployment provider.
// Deployment ids derive from the agent and environment, so redeploys
// are idempotent; health checks pass unless the environment is listed
// as failing, which tests use to exercise degraded deploys.
package airia

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// Stats summarizes the deployments performed so far.
type Stats struct {
	TotalDeployments int            `json:"total_deployments"`
	Healthy          int            `json:"healthy"`
	Failing          int            `json:"failing"`
	ByEnvironment    map[string]int `json:"by_environment"`
}

// Provider places agents into named environments.
type Provider struct {
	mu          sync.Mutex
	logger      *zap.Logger
	failing     map[string]bool
	deployments []providers.Deployment
}

// NewProvider builds an airia provider.
func NewProvider(cfg providers.AiriaConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	failing := make(map[string]bool, len(cfg.FailingEnvironments))
	for _, env := range cfg.FailingEnvironments {
		failing[env] = true
	}
	return &Provider{
		logger:  logger.With(zap.String("component", "airia")),
		failing: failing,
	}
}

func (p *Provider) Name() string { return "airia" }

// Deploy places the agent and reports its endpoint and health. An
// unset environment defaults to staging and replica counts below one
// are raised to one.
func (p *Provider) Deploy(ctx context.Context, req providers.DeployRequest) (*providers.Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.AgentID == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "deploy request missing agent id").
			WithProvider(p.Name())
	}

	env := req.Environment
	if env == "" {
		env = "staging"
	}
	replicas := req.Replicas
	if replicas < 1 {
		replicas = 1
	}
	health := "passing"
	if p.failing[env] {
		health = "failing"
	}

	dep := providers.Deployment{
		DeploymentID: deploymentID(req.AgentID, env),
		Endpoint:     fmt.Sprintf("https://%s.%s.agents.airia.ai", req.AgentID, env),
		HealthCheck:  health,
		Replicas:     replicas,
		Environment:  env,
	}

	p.mu.Lock()
	p.deployments = append(p.deployments, dep)
	p.mu.Unlock()

	p.logger.Info("agent deployed", append(providers.ContextFields(ctx),
		zap.String("deployment_id", dep.DeploymentID),
		zap.String("agent_id", req.AgentID),
		zap.String("environment", env),
		zap.String("health", health),
		zap.Int("replicas", replicas))...)
	return &dep, nil
}

// Deployments returns a copy of every placement in order.
func (p *Provider) Deployments() []providers.Deployment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]providers.Deployment, len(p.deployments))
	copy(out, p.deployments)
	return out
}

// Stats aggregates placements by health and environment.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := Stats{
		TotalDeployments: len(p.deployments),
		ByEnvironment:    make(map[string]int),
	}
	for _, dep := range p.deployments {
		stats.ByEnvironment[dep.Environment]++
		if dep.HealthCheck == "passing" {
			stats.Healthy++
		} else {
			stats.Failing++
		}
	}
	return stats
}

// deploymentID derives a stable id from the agent and environment, so
// redeploying the same pair lands on the same id.
func deploymentID(agentID, environment string) string {
	sum := sha256.Sum256([]byte(agentID + "|" + environment))
	return "deploy_" + hex.EncodeToString(sum[:])[:8]
}
