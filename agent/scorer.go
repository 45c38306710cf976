package agent

import (
	"strings"
	"time"

	"github.com/BaSui01/agentfoundry/types"
)

// Score rates a stage result in [0, 1] using role-specific heuristics.
// It is deterministic and total: the same inputs always produce the same
// score, a nil result scores 0, and an unknown role scores 0. Scoring
// never fails; a result missing its role payload simply earns nothing
// from the checks that need it.
func Score(role types.Role, task *types.Task, result *types.Result) float64 {
	if result == nil {
		return 0
	}
	var s float64
	switch role {
	case types.RoleArchitect:
		s = scoreArchitect(result.Design)
	case types.RoleCoder:
		s = scoreCoder(task, result.Code)
	case types.RoleExecutor:
		s = scoreExecutor(result.Execution)
	case types.RoleCritic:
		s = scoreCritic(result.Review)
	case types.RoleDeployer:
		s = scoreDeployer(result.Deployment)
	default:
		return 0
	}
	return clamp01(s)
}

func scoreArchitect(d *types.DesignResult) float64 {
	if d == nil {
		return 0
	}
	var s float64
	if len(d.Components) > 0 {
		s += 0.3
	}
	if len(d.Architecture) >= 100 {
		s += 0.3
	}
	// Moderate complexity is rewarded; sprawling designs earn half.
	switch {
	case d.Complexity >= 1 && d.Complexity <= 4:
		s += 0.4
	case d.Complexity >= 5:
		s += 0.2
	}
	return s
}

func scoreCoder(task *types.Task, c *types.CodeResult) float64 {
	if c == nil {
		return 0
	}
	var s float64
	if len(c.Code) > 50 {
		s += 0.3
	}
	lang := c.Language
	if lang == "" && task != nil {
		lang = task.Language
	}
	if hasDeclarations(c.Code, lang) {
		s += 0.3
	}
	if c.Healed {
		s += 0.2
	}
	if c.LinesOfCode > 10 && c.LinesOfCode < 500 {
		s += 0.2
	}
	return s
}

func hasDeclarations(code, language string) bool {
	switch strings.ToLower(language) {
	case "go", "golang", "":
		return strings.Contains(code, "func ") || strings.Contains(code, "type ")
	default:
		return strings.Contains(code, "def ") || strings.Contains(code, "class ")
	}
}

func scoreExecutor(e *types.ExecutionResult) float64 {
	if e == nil {
		return 0
	}
	var s float64
	if e.Success {
		s += 0.5
	}
	if e.ExitCode == 0 {
		s += 0.3
	}
	if e.Duration < time.Second {
		s += 0.2
	}
	return s
}

func scoreCritic(r *types.ReviewResult) float64 {
	if r == nil {
		return 0
	}
	var s float64
	if len(r.Critique) > 50 {
		s += 0.4
	}
	if len(r.Suggestions) >= 1 {
		s += 0.3
	}
	if r.QualityScore > 0 {
		s += 0.3
	}
	return s
}

func scoreDeployer(d *types.DeploymentResult) float64 {
	if d == nil {
		return 0
	}
	var s float64
	if d.Deployed {
		s += 0.4
	}
	if d.HealthCheck == "passing" {
		s += 0.3
	}
	if d.Replicas >= 2 {
		s += 0.3
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
