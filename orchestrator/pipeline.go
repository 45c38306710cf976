package orchestrator

import (
	"time"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/types"
)

// PipelineStatus is the pipeline lifecycle state.
type PipelineStatus string

const (
	// PipelineCreated means the pipeline and its agents exist but no
	// stage has run.
	PipelineCreated PipelineStatus = "created"
	// PipelineRunning means stages are executing.
	PipelineRunning PipelineStatus = "running"
	// PipelineCompleted means every stage produced a successful result.
	PipelineCompleted PipelineStatus = "completed"
	// PipelinePartial means some stages failed but others produced
	// results the pipeline kept.
	PipelinePartial PipelineStatus = "partial"
	// PipelineFailed means no stage produced a usable result, or the
	// run aborted on a stage failure.
	PipelineFailed PipelineStatus = "failed"
)

var validPipelineTransitions = map[PipelineStatus][]PipelineStatus{
	PipelineCreated: {PipelineRunning},
	PipelineRunning: {PipelineCompleted, PipelinePartial, PipelineFailed},
}

func canTransition(from, to PipelineStatus) bool {
	for _, s := range validPipelineTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StageResult is one stage's contribution to a pipeline run.
type StageResult struct {
	Role    types.Role `json:"role"`
	AgentID string     `json:"agent_id"`
	// Score is the stage's best reflexion score; failed and skipped
	// stages contribute 0.
	Score float64 `json:"score"`
	// Failed reports that every reflexion iteration of this stage failed.
	Failed bool `json:"failed,omitempty"`
	// Skipped reports the stage never ran because an earlier stage
	// failed under the abort policy.
	Skipped   bool                   `json:"skipped,omitempty"`
	Reflexion *agent.ReflexionResult `json:"reflexion,omitempty"`
}

// SpawnFailure records one child that could not be spawned. Spawns are
// independent; one failure never rolls back sibling spawns.
type SpawnFailure struct {
	ParentID string          `json:"parent_id"`
	ChildID  string          `json:"child_id"`
	Code     types.ErrorCode `json:"code"`
	Message  string          `json:"message"`
}

// PipelineResult is the outcome of one pipeline execution.
type PipelineResult struct {
	PipelineID   string         `json:"pipeline_id"`
	Status       PipelineStatus `json:"status"`
	OverallScore float64        `json:"overall_score"`
	// Stages holds one entry per pipeline role, in stage order.
	Stages []StageResult `json:"stages"`
	// Evolved reports that the overall score reached the evolution
	// threshold and a spawn pass ran.
	Evolved bool `json:"evolved"`
	// Children lists the successfully spawned child agent ids.
	Children      []string       `json:"children,omitempty"`
	SpawnFailures []SpawnFailure `json:"spawn_failures,omitempty"`
	Duration      time.Duration  `json:"duration"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// PipelineInfo is a read-only snapshot of a pipeline.
type PipelineInfo struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Requirements []string        `json:"requirements,omitempty"`
	Status       PipelineStatus  `json:"status"`
	AgentIDs     []string        `json:"agent_ids"`
	CreatedAt    time.Time       `json:"created_at"`
	Result       *PipelineResult `json:"result,omitempty"`
}

// pipeline is the orchestrator-owned record; the orchestrator lock
// guards all access.
type pipeline struct {
	id           string
	description  string
	requirements []string
	status       PipelineStatus
	task         *types.Task
	agentIDs     []string
	createdAt    time.Time
	result       *PipelineResult
}

func (p *pipeline) info() PipelineInfo {
	info := PipelineInfo{
		ID:          p.id,
		Description: p.description,
		Status:      p.status,
		CreatedAt:   p.createdAt,
		Result:      p.result,
	}
	info.Requirements = append(info.Requirements, p.requirements...)
	info.AgentIDs = append(info.AgentIDs, p.agentIDs...)
	return info
}

// applyArtifacts copies a stage's output onto the shared task so the
// next stage works from it: the architect's design feeds the coder, the
// coder's code feeds the executor, and so on.
func applyArtifacts(task *types.Task, res *types.Result) {
	if res == nil {
		return
	}
	if res.Design != nil {
		task.Architecture = res.Design.Architecture
		task.Components = append([]string(nil), res.Design.Components...)
	}
	if res.Code != nil {
		task.Code = res.Code.Code
		if res.Code.Language != "" {
			task.Language = res.Code.Language
		}
	}
	if res.Execution != nil {
		task.Execution = res.Execution
	}
	if res.Review != nil {
		task.Review = res.Review
	}
}

// overallScore is the weighted mean of the five stage scores. Roles
// without an explicit weight count as 1; skipped and failed stages
// contribute 0 to the numerator but their weight still divides, so the
// result is deterministic for a given stage list.
func overallScore(stages []StageResult, weights map[types.Role]float64) float64 {
	var num, den float64
	for _, st := range stages {
		w := 1.0
		if weights != nil {
			if v, ok := weights[st.Role]; ok {
				w = v
			}
		}
		den += w
		num += w * st.Score
	}
	if den == 0 {
		return 0
	}
	return num / den
}
