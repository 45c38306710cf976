package providers

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/types"
)

// ContextFields extracts the correlation identifiers set upstream (by the
// orchestrator or a cluster worker) into zap fields. Absent keys yield no
// fields, so the result appends to any log call unconditionally.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if v, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", v))
	}
	if v, ok := types.PipelineID(ctx); ok {
		fields = append(fields, zap.String("pipeline_id", v))
	}
	if v, ok := types.TaskID(ctx); ok {
		fields = append(fields, zap.String("task_id", v))
	}
	return fields
}
