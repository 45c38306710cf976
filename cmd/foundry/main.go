// =============================================================================
// 🎯 Agent Foundry entry point
// =============================================================================
// Operational entry point: cluster serving, one-shot pipelines, database
// migrations and health probes.
//
// Usage:
//
//	foundry serve                        # start the cluster pool + ops server
//	foundry serve --config config.yaml   # with a config file
//	foundry run --description "..."      # one-shot local pipeline
//	foundry migrate up                   # apply database migrations
//	foundry version                      # build info
//	foundry health                       # probe a running instance
// =============================================================================
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentfoundry/agent"
	"github.com/BaSui01/agentfoundry/config"
	"github.com/BaSui01/agentfoundry/internal/tlsutil"
	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/providers/airia"
	"github.com/BaSui01/agentfoundry/providers/fastino"
	"github.com/BaSui01/agentfoundry/providers/raindrop"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 📦 Build info (injected at build time)
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 Main
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "run":
		runPipeline(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration for a subcommand.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// 🏥 health command
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := tlsutil.SecureHTTPClient(5 * time.Second)
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 Version and help
// =============================================================================

func printVersion() {
	fmt.Printf("Agent Foundry %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`Agent Foundry - self-evolving agent pipeline

Usage:
  foundry <command> [options]

Commands:
  serve     Start the cluster worker pool and ops HTTP server
  run       Execute one pipeline locally and print the result as JSON
  migrate   Database migration commands
  version   Show version information
  health    Check a running instance's health endpoint
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Options for 'run':
  --config <path>          Path to configuration file (YAML)
  --description <text>     Task description (required)
  --requirements <a,b,c>   Comma-separated task requirements
  --loops <n>              Reflexion loop budget per stage
  --threshold <t>          Early-exit score threshold in [0,1]
  --evolution-threshold <t> Overall score that triggers child spawning
  --snapshot               Also print the evolution snapshot
  --persist                Record the run in the configured database
  --timeout <d>            Pipeline deadline (default 5m)

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate status    Show migration status
  migrate version   Show current migration version
  migrate goto <v>  Migrate to a specific version
  migrate force <v> Force set migration version
  migrate reset     Rollback all migrations

Examples:
  foundry serve --config /etc/foundry/config.yaml
  foundry run --description "Build a rate limiter" --requirements "thread-safe,tested"
  foundry migrate up --db-type postgres --db-url postgres://localhost/foundry
  foundry health --addr http://localhost:8080
  foundry version`)
}

// =============================================================================
// 🔧 Logger and dependency assembly
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// buildDeps assembles the provider bundle every stage agent receives.
// Healing is omitted when disabled; the coder then skips its heal pass.
func buildDeps(cfg *config.Config, logger *zap.Logger) agent.Deps {
	deps := agent.Deps{
		Inference: fastino.NewProvider(providers.FastinoConfig{
			Model:     cfg.Inference.Model,
			CacheSize: cfg.Inference.CacheSize,
			RateLimit: cfg.Inference.RequestsPerSecond,
			RateBurst: cfg.Inference.Burst,
		}, logger),
		Deployment: airia.NewProvider(providers.AiriaConfig{}, logger),
		Logger:     logger,
	}
	if cfg.Healing.Enabled {
		deps.Healing = raindrop.NewProvider(providers.RaindropConfig{}, logger)
	}
	return deps
}

// reflexionConfig maps the orchestrator section onto the per-stage loop
// bounds.
func reflexionConfig(cfg config.OrchestratorConfig) agent.ReflexionConfig {
	return agent.ReflexionConfig{
		MaxLoops:  cfg.MaxReflexionLoops,
		Threshold: cfg.PerformanceThreshold,
	}
}

// stageWeights converts the config's string-keyed weights to role keys.
func stageWeights(weights map[string]float64) map[types.Role]float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make(map[types.Role]float64, len(weights))
	for role, w := range weights {
		out[types.Role(role)] = w
	}
	return out
}
