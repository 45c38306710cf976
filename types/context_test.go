package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ctx = WithTraceID(ctx, "t1")
	if got, ok := TraceID(ctx); !ok || got != "t1" {
		t.Fatalf("TraceID mismatch: %v %v", got, ok)
	}

	ctx = WithPipelineID(ctx, "pipeline_a1b2c3d4")
	if got, ok := PipelineID(ctx); !ok || got != "pipeline_a1b2c3d4" {
		t.Fatalf("PipelineID mismatch: %v %v", got, ok)
	}

	ctx = WithTaskID(ctx, "task_0f0f0f0f")
	if got, ok := TaskID(ctx); !ok || got != "task_0f0f0f0f" {
		t.Fatalf("TaskID mismatch: %v %v", got, ok)
	}

	if _, ok := PipelineID(context.Background()); ok {
		t.Fatalf("expected missing pipeline id on empty context")
	}
}
