package types

import "time"

// Result is a tagged per-role stage result: exactly one of the payload
// pointers is set, matching Role.
type Result struct {
	Role    Role   `json:"role"`
	Summary string `json:"summary,omitempty"`

	Design     *DesignResult     `json:"design,omitempty"`
	Code       *CodeResult       `json:"code,omitempty"`
	Execution  *ExecutionResult  `json:"execution,omitempty"`
	Review     *ReviewResult     `json:"review,omitempty"`
	Deployment *DeploymentResult `json:"deployment,omitempty"`
}

// DesignResult is the architect stage output.
type DesignResult struct {
	Architecture string   `json:"architecture"`
	Components   []string `json:"components,omitempty"`
	Complexity   int      `json:"complexity"`
}

// CodeResult is the coder stage output.
type CodeResult struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	LinesOfCode int    `json:"lines_of_code"`
	Healed      bool   `json:"healed"`
	IssuesFixed int    `json:"issues_fixed"`
}

// ExecutionResult is the executor stage output.
type ExecutionResult struct {
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// ReviewResult is the critic stage output.
type ReviewResult struct {
	Critique     string   `json:"critique"`
	Suggestions  []string `json:"suggestions,omitempty"`
	QualityScore float64  `json:"quality_score"`
	Passed       bool     `json:"passed"`
}

// DeploymentResult is the deployer stage output.
type DeploymentResult struct {
	Deployed     bool   `json:"deployed"`
	DeploymentID string `json:"deployment_id,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	HealthCheck  string `json:"health_check,omitempty"`
	Replicas     int    `json:"replicas"`
	Environment  string `json:"environment,omitempty"`
}
