package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// Critic reviews the task's code and execution outcome, producing a
// critique, actionable suggestions and a quality score.
type Critic struct {
	base *Agent
	deps Deps
}

// Base returns the underlying agent.
func (c *Critic) Base() *Agent { return c.base }

// Score rates a review result.
func (c *Critic) Score(task *types.Task, result *types.Result) float64 {
	return Score(types.RoleCritic, task, result)
}

// Execute asks the inference provider for a critique and derives the
// quality score from what the pipeline has produced so far: a base of
// 0.4, plus 0.3 when execution succeeded, plus 0.3 when code exists.
func (c *Critic) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	st := c.base.Strategy()
	lang := task.Language
	if lang == "" {
		lang = "go"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review the following %s code for: %s\n", lang, task.Description)
	fmt.Fprintf(&b, "Review mode: %s\n", st.Mode)
	if task.Code != "" {
		fmt.Fprintf(&b, "Code:\n%s\n", task.Code)
	}
	if task.Execution != nil {
		fmt.Fprintf(&b, "Execution output:\n%s\n", task.Execution.Output)
	}

	resp, err := c.deps.Inference.Generate(ctx, b.String(), providers.GenerateOptions{
		MaxTokens:   1024,
		Temperature: st.Param("temperature", 0.3),
	})
	if err != nil {
		return nil, types.NewExecutionError(string(types.RoleCritic), err).
			WithProvider(c.deps.Inference.Name())
	}

	suggestions := parseSuggestions(resp)
	quality := 0.4
	if task.Execution != nil && task.Execution.Success {
		quality += 0.3
	}
	if task.Code != "" {
		quality += 0.3
	}

	return &types.Result{
		Role:    types.RoleCritic,
		Summary: fmt.Sprintf("review produced %d suggestions (quality %.2f)", len(suggestions), quality),
		Review: &types.ReviewResult{
			Critique:     resp,
			Suggestions:  suggestions,
			QualityScore: quality,
			Passed:       quality >= 0.6,
		},
	}, nil
}

// parseSuggestions collects "- " bullet lines from a critique.
func parseSuggestions(critique string) []string {
	var out []string
	for _, line := range strings.Split(critique, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") {
			out = append(out, strings.TrimPrefix(trimmed, "- "))
		}
	}
	return out
}
