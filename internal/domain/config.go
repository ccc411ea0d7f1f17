package domain

// Config holds the complete Shafaf configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Profile determines component defaults
	Profile Profile `json:"profile"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Scorer     ScorerConfig     `json:"scorer"`
	Assistant  AssistantConfig  `json:"assistant"`
	Seed       SeedConfig       `json:"seed"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// Per-client token bucket. Zero disables rate limiting.
	RateLimitPerSecond float64 `json:"rateLimitPerSecond"`
	RateLimitBurst     int     `json:"rateLimitBurst"`
}

// ScorerConfig holds risk scorer settings. Empty paths select the
// artifacts embedded in the binary.
type ScorerConfig struct {
	// ModelPath points at a serialized model artifact (JSON).
	ModelPath string `json:"modelPath"`

	// ThresholdsPath points at the threshold/feature-name config (JSON).
	ThresholdsPath string `json:"thresholdsPath"`

	// ScreeningRulesPath points at optional red-flag rule overrides.
	ScreeningRulesPath string `json:"screeningRulesPath"`

	// MinHistorySamples is the supplier contract count required before
	// stored history replaces the baseline aggregates in features.
	MinHistorySamples int `json:"minHistorySamples"`
}

// AssistantConfig holds citizen assistant settings.
type AssistantConfig struct {
	// DefaultLanguage is used when detection is inconclusive.
	DefaultLanguage string `json:"defaultLanguage"`
}

// SeedConfig controls demo data seeding at startup.
type SeedConfig struct {
	// DemoData seeds sample citizens, bills, and contracts into an
	// empty store before the server accepts traffic.
	DemoData bool `json:"demoData"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Profile represents the deployment profile.
type Profile string

const (
	// ProfileDemo runs everything in-process: SQLite + memory cache +
	// channel bus, with demo data seeded at startup.
	ProfileDemo Profile = "demo"

	// ProfileProduction uses PostgreSQL + Redis + NATS and no seeding.
	ProfileProduction Profile = "production"
)

// DefaultConfig returns the demo profile configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        30,
			WriteTimeout:       30,
			RateLimitPerSecond: 50,
			RateLimitBurst:     100,
		},
		Profile: ProfileDemo,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./shafaf.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Scorer: ScorerConfig{
			MinHistorySamples: 5,
		},
		Assistant: AssistantConfig{
			DefaultLanguage: LanguageEnglish,
		},
		Seed: SeedConfig{
			DemoData: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "shafaf",
		},
	}
}

// ProductionConfig returns the production profile configuration.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileProduction
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "shafaf",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Seed.DemoData = false
	cfg.Tracing.Enabled = true
	return cfg
}
