package providers

// FastinoConfig configures the fastino inference provider.
type FastinoConfig struct {
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// CacheSize caps the response cache; 0 disables caching.
	CacheSize int `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	// RateLimit is the sustained requests-per-second budget; 0 means unlimited.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	// RateBurst is the rate limiter burst size; defaults to 1 when RateLimit > 0.
	RateBurst int `json:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`
}

// RaindropConfig configures the raindrop healing provider.
type RaindropConfig struct {
	// HistorySize caps how many heal records are retained; 0 keeps all.
	HistorySize int `json:"history_size,omitempty" yaml:"history_size,omitempty"`
}

// AiriaConfig configures the airia deployment provider.
type AiriaConfig struct {
	// FailingEnvironments lists environments whose health checks report
	// "failing", used to exercise degraded-deploy paths.
	FailingEnvironments []string `json:"failing_environments,omitempty" yaml:"failing_environments,omitempty"`
}
