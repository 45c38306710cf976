package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

// Coder generates code for a task, optionally running it through the
// healing provider before handing it downstream.
type Coder struct {
	base *Agent
	deps Deps
}

// Base returns the underlying agent.
func (c *Coder) Base() *Agent { return c.base }

// Score rates a code result.
func (c *Coder) Score(task *types.Task, result *types.Result) float64 {
	return Score(types.RoleCoder, task, result)
}

// Execute generates code from the task description and architecture,
// strips markdown fencing, and heals the code when a healing provider
// is wired. Healing is best effort: a healing failure logs a warning
// and the unhealed code proceeds.
func (c *Coder) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	st := c.base.Strategy()
	lang := task.Language
	if lang == "" {
		lang = "go"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Implement the following in %s: %s\n", lang, task.Description)
	fmt.Fprintf(&b, "Coding style: %s\n", st.Mode)
	if task.Architecture != "" {
		fmt.Fprintf(&b, "Architecture:\n%s\n", task.Architecture)
	}
	if len(task.Components) > 0 {
		fmt.Fprintf(&b, "Components: %s\n", strings.Join(task.Components, ", "))
	}

	resp, err := c.deps.Inference.Generate(ctx, b.String(), providers.GenerateOptions{
		MaxTokens:   2048,
		Temperature: st.Param("temperature", 0.5),
	})
	if err != nil {
		return nil, types.NewExecutionError(string(types.RoleCoder), err).
			WithProvider(c.deps.Inference.Name())
	}

	code := stripCodeFences(resp)
	healed := false
	issuesFixed := 0
	if c.deps.Healing != nil {
		hr, healErr := c.deps.Healing.Heal(ctx, code, lang)
		if healErr != nil {
			c.base.logger.Warn("healing failed, keeping unhealed code",
				zap.String("provider", c.deps.Healing.Name()),
				zap.Error(healErr))
		} else if hr.IssuesFixed > 0 {
			code = hr.Code
			healed = true
			issuesFixed = hr.IssuesFixed
		}
	}

	return &types.Result{
		Role:    types.RoleCoder,
		Summary: fmt.Sprintf("generated %d lines of %s (healed=%v)", countLines(code), lang, healed),
		Code: &types.CodeResult{
			Language:    lang,
			Code:        code,
			LinesOfCode: countLines(code),
			Healed:      healed,
			IssuesFixed: issuesFixed,
		},
	}, nil
}

// stripCodeFences removes a surrounding markdown code fence, including
// a language tag on the opening fence, leaving bare code untouched.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	lines = lines[1:] // drop opening fence with optional language tag
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// countLines counts non-blank lines.
func countLines(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
