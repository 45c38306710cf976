package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/config"
	"github.com/BaSui01/agentfoundry/evolution"
	"github.com/BaSui01/agentfoundry/internal/storage"
	"github.com/BaSui01/agentfoundry/internal/telemetry"
	"github.com/BaSui01/agentfoundry/orchestrator"
)

// =============================================================================
// 🚀 run command
// =============================================================================

// runOutput is the run command's stdout payload when the evolution
// snapshot is requested alongside the pipeline result.
type runOutput struct {
	Result    *orchestrator.PipelineResult `json:"result"`
	Evolution *evolution.Snapshot          `json:"evolution,omitempty"`
}

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	description := fs.String("description", "", "Task description (required)")
	requirements := fs.String("requirements", "", "Comma-separated task requirements")
	loops := fs.Int("loops", 0, "Reflexion loop budget per stage (0 = config value)")
	threshold := fs.Float64("threshold", -1, "Early-exit score threshold in [0,1] (negative = config value)")
	evoThreshold := fs.Float64("evolution-threshold", -1, "Overall score that triggers child spawning (negative = config value)")
	snapshot := fs.Bool("snapshot", false, "Also print the evolution snapshot")
	persist := fs.Bool("persist", false, "Record the run in the configured database")
	timeout := fs.Duration("timeout", 5*time.Minute, "Pipeline deadline")
	fs.Parse(args)

	if *description == "" {
		fmt.Fprintln(os.Stderr, "--description is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *loops > 0 {
		cfg.Orchestrator.MaxReflexionLoops = *loops
	}
	if *threshold >= 0 {
		cfg.Orchestrator.PerformanceThreshold = *threshold
	}
	if *evoThreshold >= 0 {
		cfg.Orchestrator.EvolutionThreshold = *evoThreshold
	}

	// stdout carries only the JSON result; logs go to stderr.
	logCfg := cfg.Log
	logCfg.OutputPaths = []string{"stderr"}
	logger := initLogger(logCfg)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := executePipeline(ctx, cfg, logger, *description, splitList(*requirements), *persist, *snapshot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", err)
		os.Exit(1)
	}

	var payload interface{} = out.Result
	if *snapshot {
		payload = out
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}

// executePipeline assembles an orchestrator from the configuration and
// drives one pipeline through it.
func executePipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, description string, requirements []string, persist, snapshot bool) (*runOutput, error) {
	ocfg := orchestrator.Config{
		Reflexion:          reflexionConfig(cfg.Orchestrator),
		MetaLearner:        agent.DefaultMetaLearnerConfig(),
		EvolutionThreshold: cfg.Orchestrator.EvolutionThreshold,
		ContinueOnFailure:  cfg.Orchestrator.ContinueOnFailure,
		StageWeights:       stageWeights(cfg.Orchestrator.StageWeights),
		DeployEnvironment:  cfg.Deployment.Environment,
		DeployReplicas:     cfg.Deployment.Replicas,
	}

	var opts []orchestrator.Option
	if persist {
		store, err := storage.Open(cfg.Database, logger)
		if err != nil {
			logger.Warn("database not available, run will not be recorded", zap.Error(err))
		} else {
			defer store.Close()
			opts = append(opts, orchestrator.WithRecorder(store))
		}
	}

	tel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			// Fresh context: the run context may already be expired
			// when the pipeline finishes near its deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown error", zap.Error(err))
			}
		}()
		if cfg.Telemetry.Enabled {
			opts = append(opts, orchestrator.WithTracer(otel.Tracer("foundry/orchestrator")))
		}
	}

	orch, err := orchestrator.New(ocfg, buildDeps(cfg, logger), opts...)
	if err != nil {
		return nil, err
	}

	id, err := orch.CreatePipeline(ctx, description, requirements)
	if err != nil {
		return nil, err
	}

	result, err := orch.ExecutePipeline(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &runOutput{Result: result}
	if snapshot {
		snap := orch.EvolutionSnapshot()
		out.Evolution = &snap
	}
	return out, nil
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
