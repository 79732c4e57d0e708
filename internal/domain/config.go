package domain

import "time"

// Config holds the complete Sentinel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines infrastructure backends
	Tier Tier `json:"tier"`

	// Scoring policy for the daily pipeline
	Scoring ScoringConfig `json:"scoring"`

	// Supplemental CEL flag rules evaluated alongside the built-in metrics
	FlagRules []FlagRule `json:"flagRules"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

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

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the single-node tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the clustered tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// MetricWeights are the per-metric contributions to the risk score.
// They must sum to <= 1 so the score stays interpretable.
type MetricWeights struct {
	Duration           float64 `json:"duration"`
	BiometricException float64 `json:"biometricException"`
	DuplicateError     float64 `json:"duplicateError"`
	ActivityHours      float64 `json:"activityHours"`
}

// ReferenceStdDevs are the fixed reference standard deviations used for
// the rate and hour-spread Z-scores. Per-day district stddevs for these
// metrics are numerically unstable at small sample sizes, so the scorer
// normalizes against these tunable constants instead. The duration metric
// always uses the district's own computed stddev.
type ReferenceStdDevs struct {
	BiometricException float64 `json:"biometricException"`
	DuplicateError     float64 `json:"duplicateError"`
	ActivityHours      float64 `json:"activityHours"`
}

// ScoringConfig is the complete scoring policy: weights, flag threshold,
// reference deviations, level boundaries and pipeline parallelism. The
// algorithm never hardcodes any of these.
type ScoringConfig struct {
	// ZFlagThreshold is the Z-score above which a metric raises its flag.
	ZFlagThreshold float64 `json:"zFlagThreshold"`

	Weights          MetricWeights    `json:"weights"`
	ReferenceStdDevs ReferenceStdDevs `json:"referenceStdDevs"`

	// Level boundaries: score >= CriticalScore is CRITICAL,
	// score >= MediumScore is MEDIUM, otherwise LOW.
	MediumScore   int `json:"mediumScore"`
	CriticalScore int `json:"criticalScore"`

	// Workers bounds the per-operator scoring pool.
	Workers int `json:"workers"`
}

// DefaultScoringConfig returns the standard scoring policy.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ZFlagThreshold: 3.0,
		Weights: MetricWeights{
			Duration:           0.30,
			BiometricException: 0.25,
			DuplicateError:     0.30,
			ActivityHours:      0.15,
		},
		ReferenceStdDevs: ReferenceStdDevs{
			BiometricException: 15,
			DuplicateError:     10,
			ActivityHours:      2,
		},
		MediumScore:   40,
		CriticalScore: 70,
		Workers:       8,
	}
}

// DefaultConfig returns a default configuration for the Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:    TierCommunity,
		Scoring: DefaultScoringConfig(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./sentinel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "sentinel",
		},
	}
}

// ProConfig returns a configuration for the Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "sentinel",
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
	cfg.Tracing.Enabled = true
	return cfg
}
