package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Analysis *analysisConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"analysis.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	LogLevel       string        `envconfig:"ANALYSIS_ENGINE_LOG_LEVEL" default:"info"`
	MetricsAddress string        `envconfig:"ANALYSIS_ENGINE_METRICS_ADDRESS" default:":8081"`
	SweepInterval  time.Duration `envconfig:"ANALYSIS_ENGINE_SWEEP_INTERVAL" default:"1h"`
	RetentionAge   time.Duration `envconfig:"ANALYSIS_ENGINE_RETENTION_AGE" default:"168h"`
}

type analysisConfig struct {
	// TextMix is the share of the composite score taken from text analysis
	// when quantitative coverage is good. It shifts upward on its own when
	// quantitative data is thin.
	TextMix float64 `envconfig:"ANALYSIS_TEXT_MIX" default:"0.6"`

	// RecomputePercentiles re-ranks all of a job's results once the job
	// completes, replacing the incremental running-rank percentiles.
	RecomputePercentiles bool `envconfig:"ANALYSIS_RECOMPUTE_PERCENTILES" default:"false"`

	// JobTimeout bounds a single job run. Zero disables the timeout; stuck
	// jobs then only resolve through explicit cancellation or retention.
	JobTimeout time.Duration `envconfig:"ANALYSIS_JOB_TIMEOUT" default:"0"`

	// EventBufferSize is the per-subscriber progress channel depth.
	EventBufferSize int `envconfig:"ANALYSIS_EVENT_BUFFER_SIZE" default:"16"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config built only from defaults, ignoring the
// environment. Tests use it to get an isolated in-memory database.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service: &svcConfig{
			LogLevel:      "info",
			SweepInterval: time.Hour,
			RetentionAge:  7 * 24 * time.Hour,
		},
		Analysis: &analysisConfig{
			TextMix:         0.6,
			EventBufferSize: 16,
		},
	}
}
