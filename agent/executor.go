package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentfoundry/types"
)

// Executor runs a static execution check over the task's code. There is
// no real sandbox behind it: the check is a deterministic structural
// pass (package clause, balanced braces) with a duration proportional
// to code size, which keeps pipelines reproducible and hermetic.
type Executor struct {
	base *Agent
	deps Deps
}

// Base returns the underlying agent.
func (e *Executor) Base() *Agent { return e.base }

// Score rates an execution result.
func (e *Executor) Score(task *types.Task, result *types.Result) float64 {
	return Score(types.RoleExecutor, task, result)
}

// Execute checks the task's code and reports success or a structured
// failure. A task with no code is a failed execution, not an error.
func (e *Executor) Execute(ctx context.Context, task *types.Task) (*types.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code := task.Code
	lang := strings.ToLower(task.Language)
	if lang == "" {
		lang = "go"
	}

	success, output := checkCode(code, lang)
	exitCode := 0
	if !success {
		exitCode = 1
	}
	duration := time.Duration(len(code)/20) * time.Millisecond

	return &types.Result{
		Role:    types.RoleExecutor,
		Summary: fmt.Sprintf("execution %s (exit %d)", statusWord(success), exitCode),
		Execution: &types.ExecutionResult{
			Success:  success,
			ExitCode: exitCode,
			Output:   output,
			Duration: duration,
		},
	}, nil
}

func checkCode(code, lang string) (bool, string) {
	if strings.TrimSpace(code) == "" {
		return false, "no code to execute"
	}
	if lang == "go" || lang == "golang" {
		if !strings.Contains(code, "package ") {
			return false, "missing package clause"
		}
		if !balancedBraces(code) {
			return false, "unbalanced braces"
		}
	}
	return true, "build ok\nall checks passed"
}

func balancedBraces(code string) bool {
	depth := 0
	for _, r := range code {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func statusWord(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}
