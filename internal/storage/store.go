package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/agentfoundry/config"
	"github.com/BaSui01/agentfoundry/evolution"
	"github.com/BaSui01/agentfoundry/orchestrator"
	"github.com/BaSui01/agentfoundry/providers/raindrop"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 💾 Relational store
// =============================================================================

// Store persists pipelines, stage executions, evolution nodes and
// healing actions. It satisfies orchestrator.Recorder; the orchestrator
// treats save errors as warnings, so a broken database never fails a
// pipeline.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ orchestrator.Recorder = (*Store)(nil)

// Open connects to the configured database and returns a Store.
// The sqlite driver auto-migrates the schema for development use;
// postgres and mysql schemas are managed by the embedded migrations.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("database driver not configured")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	logger.Info("database connected", zap.String("driver", cfg.Driver))
	return NewStore(db, logger), nil
}

// NewStore wraps an existing gorm handle.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "storage")),
	}
}

// AutoMigrate creates or updates the foundry tables. Intended for the
// sqlite development setup; production databases use foundry migrate.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&PipelineRecord{},
		&StageExecutionRecord{},
		&EvolutionNodeRecord{},
		&HealingActionRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle for pool wiring.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// =============================================================================
// 🎯 Recorder implementation
// =============================================================================

// SavePipeline upserts a pipeline snapshot. Called at creation and
// again at completion with the final result.
func (s *Store) SavePipeline(ctx context.Context, info orchestrator.PipelineInfo) error {
	rec := PipelineRecord{
		ID:           info.ID,
		Description:  info.Description,
		Requirements: marshalJSON(info.Requirements),
		Status:       string(info.Status),
		AgentIDs:     marshalJSON(info.AgentIDs),
		CreatedAt:    info.CreatedAt,
	}
	if info.Result != nil {
		rec.OverallScore = info.Result.OverallScore
		rec.Evolved = info.Result.Evolved
		completed := info.Result.CompletedAt
		rec.CompletedAt = &completed
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save pipeline %s: %w", info.ID, err)
	}
	return nil
}

// SaveStage appends one finished stage execution.
func (s *Store) SaveStage(ctx context.Context, pipelineID string, stage orchestrator.StageResult) error {
	rec := StageExecutionRecord{
		PipelineID: pipelineID,
		Role:       string(stage.Role),
		AgentID:    stage.AgentID,
		Score:      stage.Score,
		Failed:     stage.Failed,
		Skipped:    stage.Skipped,
	}
	if stage.Reflexion != nil {
		rec.Loops = stage.Reflexion.LoopsExecuted
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save stage %s/%s: %w", pipelineID, stage.Role, err)
	}
	return nil
}

// SaveEvolutionNode inserts a tree node. Nodes are immutable, so a
// replayed save of the same id is a no-op.
func (s *Store) SaveEvolutionNode(ctx context.Context, node evolution.Node) error {
	rec := EvolutionNodeRecord{
		ID:         node.ID,
		ParentID:   node.ParentID,
		Generation: node.Generation,
		Score:      node.Score,
		Metadata:   marshalJSON(node.Metadata),
		CreatedAt:  node.CreatedAt,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save evolution node %s: %w", node.ID, err)
	}
	return nil
}

// SaveHealingActions flushes healing history, skipping actions already
// persisted. Returns the number of newly inserted rows.
func (s *Store) SaveHealingActions(ctx context.Context, actions []raindrop.Action) (int, error) {
	if len(actions) == 0 {
		return 0, nil
	}

	recs := make([]HealingActionRecord, 0, len(actions))
	for _, a := range actions {
		recs = append(recs, HealingActionRecord{
			ID:             a.ID,
			Language:       a.Language,
			OriginalLength: a.OriginalLength,
			HealedLength:   a.HealedLength,
			IssuesFixed:    marshalJSON(a.IssuesFixed),
			Attempts:       a.Attempts,
			HealedAt:       a.HealedAt,
		})
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&recs)
	if res.Error != nil {
		return 0, fmt.Errorf("save healing actions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// =============================================================================
// 🔍 Queries
// =============================================================================

// GetPipeline loads one pipeline by id.
func (s *Store) GetPipeline(ctx context.Context, id string) (*PipelineRecord, error) {
	var rec PipelineRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewPipelineNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get pipeline %s: %w", id, err)
	}
	return &rec, nil
}

// ListPipelines returns the most recent pipelines, newest first.
func (s *Store) ListPipelines(ctx context.Context, limit int) ([]PipelineRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []PipelineRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	return recs, nil
}

// ListStages returns a pipeline's stage executions in insertion order.
func (s *Store) ListStages(ctx context.Context, pipelineID string) ([]StageExecutionRecord, error) {
	var recs []StageExecutionRecord
	err := s.db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list stages for %s: %w", pipelineID, err)
	}
	return recs, nil
}

// ListEvolutionNodes returns tree nodes ordered by generation then id.
func (s *Store) ListEvolutionNodes(ctx context.Context) ([]EvolutionNodeRecord, error) {
	var recs []EvolutionNodeRecord
	err := s.db.WithContext(ctx).
		Order("generation ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list evolution nodes: %w", err)
	}
	return recs, nil
}

// TopEvolutionNodes returns the n best-scoring nodes.
func (s *Store) TopEvolutionNodes(ctx context.Context, n int) ([]EvolutionNodeRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	var recs []EvolutionNodeRecord
	err := s.db.WithContext(ctx).
		Order("score DESC, created_at ASC").
		Limit(n).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("top evolution nodes: %w", err)
	}
	return recs, nil
}

// ListHealingActions returns healing history, newest first.
func (s *Store) ListHealingActions(ctx context.Context, limit int) ([]HealingActionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []HealingActionRecord
	err := s.db.WithContext(ctx).
		Order("healed_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list healing actions: %w", err)
	}
	return recs, nil
}

// marshalJSON renders v for a text column; empty collections become "".
func marshalJSON(v interface{}) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return ""
		}
	case map[string]string:
		if len(val) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
