// =============================================================================
// 📦 Agent Foundry configuration loader
// =============================================================================
// Unified configuration loading: YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("FOUNDRY").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 Core configuration structure
// =============================================================================

// Config is the complete Agent Foundry configuration.
type Config struct {
	// App identity
	App AppConfig `yaml:"app" env:"APP"`

	// Server ops HTTP configuration
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Orchestrator pipeline configuration
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// Inference provider configuration
	Inference InferenceConfig `yaml:"inference" env:"INFERENCE"`

	// Healing provider configuration
	Healing HealingConfig `yaml:"healing" env:"HEALING"`

	// Deployment provider configuration
	Deployment DeploymentConfig `yaml:"deployment" env:"DEPLOYMENT"`

	// Redis queue configuration
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database configuration
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Cluster worker pool configuration
	Cluster ClusterConfig `yaml:"cluster" env:"CLUSTER"`

	// Log configuration
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configuration
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	// Service name
	Name string `yaml:"name" env:"NAME"`
	// Deployment environment: development, staging, production
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// ServerConfig configures the ops HTTP surface.
type ServerConfig struct {
	// HTTP port (healthz/readyz)
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics port (prometheus)
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// OrchestratorConfig tunes the reflexion and evolution loops.
type OrchestratorConfig struct {
	// Reflexion loop budget per stage
	MaxReflexionLoops int `yaml:"max_reflexion_loops" env:"MAX_REFLEXION_LOOPS"`
	// Early-exit score threshold for a stage, in [0,1]
	PerformanceThreshold float64 `yaml:"performance_threshold" env:"PERFORMANCE_THRESHOLD"`
	// Overall score threshold that triggers child spawning, in [0,1]
	EvolutionThreshold float64 `yaml:"evolution_threshold" env:"EVOLUTION_THRESHOLD"`
	// Keep running later stages after a stage failure
	ContinueOnFailure bool `yaml:"continue_on_failure" env:"CONTINUE_ON_FAILURE"`
	// Optional per-role weights for the overall score; empty means equal
	StageWeights map[string]float64 `yaml:"stage_weights" env:"-"`
}

// InferenceConfig configures the inference provider.
type InferenceConfig struct {
	// Provider name
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API key (reserved for a real backend)
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL (reserved for a real backend)
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Model identifier
	Model string `yaml:"model" env:"MODEL"`
	// Response cache capacity (entries)
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`
	// Request rate limit
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	// Rate limit burst
	Burst int `yaml:"burst" env:"BURST"`
}

// HealingConfig configures the code-healing provider.
type HealingConfig struct {
	// Provider name
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Disable to skip healing during the coder stage
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// DeploymentConfig configures the deployment provider.
type DeploymentConfig struct {
	// Provider name
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Target environment for deployer stages
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	// Replica count requested per deployment
	Replicas int `yaml:"replicas" env:"REPLICAS"`
}

// RedisConfig configures the cluster queue backend.
type RedisConfig struct {
	// Address
	Addr string `yaml:"addr" env:"ADDR"`
	// Password
	Password string `yaml:"password" env:"PASSWORD"`
	// Database number
	DB int `yaml:"db" env:"DB"`
	// Connection pool size
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Minimum idle connections
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// Enable TLS for managed Redis deployments
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig configures relational persistence.
type DatabaseConfig struct {
	// Driver: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// Host
	Host string `yaml:"host" env:"HOST"`
	// Port
	Port int `yaml:"port" env:"PORT"`
	// User
	User string `yaml:"user" env:"USER"`
	// Password
	Password string `yaml:"password" env:"PASSWORD"`
	// Database name (file path for sqlite)
	Name string `yaml:"name" env:"NAME"`
	// SSL mode (postgres)
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// Maximum open connections
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// Maximum idle connections
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// Connection max lifetime
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// ClusterConfig tunes the persistent worker pool.
type ClusterConfig struct {
	// Blocking claim timeout per poll
	ClaimTimeout time.Duration `yaml:"claim_timeout" env:"CLAIM_TIMEOUT"`
	// Heartbeat key TTL
	HeartbeatTTL time.Duration `yaml:"heartbeat_ttl" env:"HEARTBEAT_TTL"`
	// Heartbeat age after which a worker counts as unhealthy
	StaleAfter time.Duration `yaml:"stale_after" env:"STALE_AFTER"`
	// Health monitor tick interval
	MonitorInterval time.Duration `yaml:"monitor_interval" env:"MONITOR_INTERVAL"`
	// Result key TTL
	ResultTTL time.Duration `yaml:"result_ttl" env:"RESULT_TTL"`
}

// LogConfig configures zap logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Annotate entries with caller info
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Attach stack traces on error
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	// Master switch; disabled means noop providers
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP gRPC endpoint
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name resource attribute
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Trace sampling rate in [0,1]
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 Configuration loader
// =============================================================================

// Loader loads configuration using the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "FOUNDRY",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the configuration file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a configuration validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration.
// Precedence: defaults → YAML file → environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file falls back to defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv applies environment variable overrides.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv recursively sets struct fields from the environment.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue assigns a parsed string value to a struct field.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration parses as a duration string.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 Helpers
// =============================================================================

// MustLoad loads configuration and panics on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	if c.Orchestrator.MaxReflexionLoops <= 0 {
		errs = append(errs, "max_reflexion_loops must be positive")
	}
	if c.Orchestrator.PerformanceThreshold < 0 || c.Orchestrator.PerformanceThreshold > 1 {
		errs = append(errs, "performance_threshold must be between 0 and 1")
	}
	if c.Orchestrator.EvolutionThreshold < 0 || c.Orchestrator.EvolutionThreshold > 1 {
		errs = append(errs, "evolution_threshold must be between 0 and 1")
	}
	for role, w := range c.Orchestrator.StageWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("stage weight for %s must not be negative", role))
		}
	}

	if c.Deployment.Replicas < 1 {
		errs = append(errs, "deployment replicas must be at least 1")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql", "":
	default:
		errs = append(errs, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}

	if c.Cluster.ClaimTimeout <= 0 || c.Cluster.HeartbeatTTL <= 0 ||
		c.Cluster.StaleAfter <= 0 || c.Cluster.MonitorInterval <= 0 {
		errs = append(errs, "cluster intervals must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the database connection string.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
