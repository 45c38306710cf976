package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// Architect turns a task description into a system design.
type Architect struct {
	base *Agent
	deps Deps
}

// Base returns the underlying agent.
func (a *Architect) Base() *Agent { return a.base }

// Score rates a design result.
func (a *Architect) Score(task *types.Task, result *types.Result) float64 {
	return Score(types.RoleArchitect, task, result)
}

// Execute asks the inference provider for an architecture document and
// parses the component list out of it.
func (a *Architect) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	st := a.base.Strategy()

	var b strings.Builder
	fmt.Fprintf(&b, "Design the architecture for: %s\n", task.Description)
	fmt.Fprintf(&b, "Preferred style: %s\n", st.Mode)
	if len(task.Requirements) > 0 {
		b.WriteString("Requirements:\n")
		for _, r := range task.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(task.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range task.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	resp, err := a.deps.Inference.Generate(ctx, b.String(), providers.GenerateOptions{
		MaxTokens:   1024,
		Temperature: st.Param("temperature", 0.7),
	})
	if err != nil {
		return nil, types.NewExecutionError(string(types.RoleArchitect), err).
			WithProvider(a.deps.Inference.Name())
	}

	components := parseComponents(resp)
	complexity := len(components)
	if complexity == 0 {
		complexity = 1
	}

	return &types.Result{
		Role:    types.RoleArchitect,
		Summary: fmt.Sprintf("designed %d-component architecture (%s)", len(components), st.Mode),
		Design: &types.DesignResult{
			Architecture: resp,
			Components:   components,
			Complexity:   complexity,
		},
	}, nil
}

// parseComponents extracts the comma-separated list on the first
// "Components:" line of an architecture document.
func parseComponents(doc string) []string {
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Components:") {
			continue
		}
		rest := strings.TrimPrefix(trimmed, "Components:")
		var out []string
		for _, part := range strings.Split(rest, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
