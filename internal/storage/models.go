package storage

import (
	"time"
)

// =============================================================================
// 🗄️ Persistence models
// =============================================================================

// PipelineRecord persists one pipeline and its final outcome.
type PipelineRecord struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	Requirements string     `gorm:"type:text" json:"requirements"` // JSON array
	Status       string     `gorm:"size:20;not null;index:idx_pipelines_status" json:"status"`
	OverallScore float64    `gorm:"default:0" json:"overall_score"`
	Evolved      bool       `gorm:"default:false" json:"evolved"`
	AgentIDs     string     `gorm:"type:text" json:"agent_ids"` // JSON array
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (PipelineRecord) TableName() string {
	return "pipelines"
}

// StageExecutionRecord persists one finished pipeline stage.
type StageExecutionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PipelineID string    `gorm:"size:64;not null;index:idx_stages_pipeline" json:"pipeline_id"`
	Role       string    `gorm:"size:20;not null" json:"role"`
	AgentID    string    `gorm:"size:128;not null" json:"agent_id"`
	Score      float64   `gorm:"default:0" json:"score"`
	Loops      int       `gorm:"default:0" json:"loops"` // reflexion iterations executed
	Failed     bool      `gorm:"default:false" json:"failed"`
	Skipped    bool      `gorm:"default:false" json:"skipped"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StageExecutionRecord) TableName() string {
	return "stage_executions"
}

// EvolutionNodeRecord persists one evolution tree node. Nodes are
// immutable once registered.
type EvolutionNodeRecord struct {
	ID         string    `gorm:"primaryKey;size:128" json:"id"`
	ParentID   string    `gorm:"size:128;index:idx_nodes_parent" json:"parent_id"` // empty for roots
	Generation int       `gorm:"not null;index:idx_nodes_generation" json:"generation"`
	Score      float64   `gorm:"default:0" json:"score"`
	Metadata   string    `gorm:"type:text" json:"metadata"` // JSON object
	CreatedAt  time.Time `json:"created_at"`
}

func (EvolutionNodeRecord) TableName() string {
	return "evolution_nodes"
}

// HealingActionRecord persists one code-healing session.
type HealingActionRecord struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Language       string    `gorm:"size:40" json:"language"`
	OriginalLength int       `gorm:"default:0" json:"original_length"`
	HealedLength   int       `gorm:"default:0" json:"healed_length"`
	IssuesFixed    string    `gorm:"type:text" json:"issues_fixed"` // JSON array
	Attempts       int       `gorm:"default:0" json:"attempts"`
	HealedAt       time.Time `json:"healed_at"`
}

func (HealingActionRecord) TableName() string {
	return "healing_actions"
}
