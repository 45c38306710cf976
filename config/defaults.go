// =============================================================================
// 📦 Agent Foundry default configuration
// =============================================================================
// Sensible defaults for every configuration section.
// =============================================================================
package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		App:          DefaultAppConfig(),
		Server:       DefaultServerConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Inference:    DefaultInferenceConfig(),
		Healing:      DefaultHealingConfig(),
		Deployment:   DefaultDeploymentConfig(),
		Redis:        DefaultRedisConfig(),
		Database:     DefaultDatabaseConfig(),
		Cluster:      DefaultClusterConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultAppConfig returns the default app identity.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Name:        "agentfoundry",
		Environment: "development",
	}
}

// DefaultServerConfig returns the default ops server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultOrchestratorConfig returns the default pipeline tuning.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxReflexionLoops:    5,
		PerformanceThreshold: 0.75,
		EvolutionThreshold:   0.85,
		ContinueOnFailure:    true,
	}
}

// DefaultInferenceConfig returns the default inference provider configuration.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		Provider:          "fastino",
		Model:             "fastino-edge-1",
		CacheSize:         256,
		RequestsPerSecond: 50,
		Burst:             100,
	}
}

// DefaultHealingConfig returns the default healing provider configuration.
func DefaultHealingConfig() HealingConfig {
	return HealingConfig{
		Provider: "raindrop",
		Enabled:  true,
	}
}

// DefaultDeploymentConfig returns the default deployment provider configuration.
func DefaultDeploymentConfig() DeploymentConfig {
	return DeploymentConfig{
		Provider:    "airia",
		Environment: "production",
		Replicas:    2,
	}
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig returns the default database configuration.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "foundry.db",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultClusterConfig returns the default worker pool configuration.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		ClaimTimeout:    5 * time.Second,
		HeartbeatTTL:    30 * time.Second,
		StaleAfter:      60 * time.Second,
		MonitorInterval: 10 * time.Second,
		ResultTTL:       5 * time.Minute,
	}
}

// DefaultLogConfig returns the default log configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentfoundry",
		SampleRate:   0.1,
	}
}
