// Package providers defines the external service contracts the pipeline
// stages depend on: inference (text generation), healing (code repair)
// and deployment. Implementations live in subpackages named after the
// backing service; all of them are deterministic local engines, so the
// module runs end to end without network credentials.
package providers

import "context"

// GenerateOptions controls a single inference call.
type GenerateOptions struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// InferenceProvider produces text for a prompt. Implementations must be
// safe for concurrent use.
type InferenceProvider interface {
	// Generate returns a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// HealResult describes what a healing pass changed.
type HealResult struct {
	Code        string   `json:"code"`
	IssuesFixed int      `json:"issues_fixed"`
	Issues      []string `json:"issues,omitempty"`
}

// HealingProvider repairs common defects in generated code.
type HealingProvider interface {
	// Heal returns the repaired code along with the issues it fixed.
	// Clean input comes back unchanged with IssuesFixed == 0.
	Heal(ctx context.Context, code, language string) (*HealResult, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// DeployRequest asks for an agent to be placed in an environment.
type DeployRequest struct {
	AgentID     string `json:"agent_id"`
	Environment string `json:"environment"`
	Replicas    int    `json:"replicas"`
}

// Deployment is the record of a completed placement.
type Deployment struct {
	DeploymentID string `json:"deployment_id"`
	Endpoint     string `json:"endpoint"`
	HealthCheck  string `json:"health_check"`
	Replicas     int    `json:"replicas"`
	Environment  string `json:"environment"`
}

// DeploymentProvider places agents into serving environments.
type DeploymentProvider interface {
	// Deploy performs the placement and reports the resulting endpoint
	// and health state.
	Deploy(ctx context.Context, req DeployRequest) (*Deployment, error)

	// Name returns the provider's unique identifier.
	Name() string
}
