package cuvs

import (
	"errors"
	"fmt"

	"github.com/eltociear/cuvs/distance"
	"github.com/kelseyhightower/envconfig"
)

// Config describes a single validation case: the data shape, the build and
// search parameters for the index under test, and the pass threshold.
type Config struct {
	Name    string
	Seed    uint64
	Rows    int
	Dim     int
	Queries int
	K       int

	// MinRecall is the pass threshold in [0, 1].
	MinRecall float64

	// Exact selects the precision-safe dataset generator so ground-truth
	// ordering carries no rounding noise.
	Exact bool

	// AddDataOnBuild false makes the runner build on the first half of the
	// dataset and Extend with the second half.
	AddDataOnBuild bool

	Build  BuildParams
	Search SearchParams
}

// Validate rejects invalid configurations before any comparison runs.
func (c *Config) Validate() error {
	if c.Dim <= 0 {
		return &ConfigError{Config: c.Name, Field: "dim", Reason: fmt.Sprintf("must be positive, got %d", c.Dim)}
	}
	if c.Rows <= 0 {
		return &ConfigError{Config: c.Name, Field: "rows", Reason: fmt.Sprintf("must be positive, got %d", c.Rows)}
	}
	if c.Queries < 0 {
		return &ConfigError{Config: c.Name, Field: "queries", Reason: fmt.Sprintf("must be non-negative, got %d", c.Queries)}
	}
	if c.K <= 0 {
		return &ConfigError{Config: c.Name, Field: "k", Reason: fmt.Sprintf("must be positive, got %d", c.K)}
	}
	if c.K > c.Rows {
		return &ConfigError{Config: c.Name, Field: "k", Reason: fmt.Sprintf("k=%d exceeds rows=%d", c.K, c.Rows)}
	}
	if c.MinRecall < 0 || c.MinRecall > 1 {
		return &ConfigError{Config: c.Name, Field: "min_recall", Reason: fmt.Sprintf("must be in [0, 1], got %g", c.MinRecall)}
	}
	if _, err := distance.Provider(c.Build.Metric); err != nil {
		return &ConfigError{Config: c.Name, Field: "metric", Reason: err.Error()}
	}
	if cp := c.Build.Compression; cp != nil {
		if cp.NumSubvectors <= 0 {
			return &ConfigError{Config: c.Name, Field: "compression", Reason: fmt.Sprintf("subvectors must be positive, got %d", cp.NumSubvectors)}
		}
		if c.Dim%cp.NumSubvectors != 0 {
			return &ConfigError{Config: c.Name, Field: "compression", Reason: fmt.Sprintf("dim %d not divisible by %d subvectors", c.Dim, cp.NumSubvectors)}
		}
		if cp.NumCentroids <= 0 || cp.NumCentroids > 256 {
			return &ConfigError{Config: c.Name, Field: "compression", Reason: fmt.Sprintf("centroids must be in (0, 256], got %d", cp.NumCentroids)}
		}
	}
	return nil
}

// Env config validation errors.
var (
	ErrInvalidMinRecall   = errors.New("min_recall must be in [0, 1]")
	ErrInvalidTolerance   = errors.New("tolerances must be positive")
	ErrInvalidParallelism = errors.New("parallelism must be non-negative")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// EnvConfig is the harness configuration read from CUVS_-prefixed
// environment variables.
type EnvConfig struct {
	Seed                 uint64  `envconfig:"SEED" default:"42"`
	Rows                 int     `envconfig:"ROWS" default:"1000"`
	Dim                  int     `envconfig:"DIM" default:"64"`
	Queries              int     `envconfig:"QUERIES" default:"10"`
	K                    int     `envconfig:"K" default:"16"`
	MinRecall            float64 `envconfig:"MIN_RECALL" default:"0.995"`
	RecallTolerance      float64 `envconfig:"RECALL_TOLERANCE" default:"0.001"`
	ConsistencyTolerance float64 `envconfig:"CONSISTENCY_TOLERANCE" default:"0.0001"`
	DataDir              string  `envconfig:"DATA_DIR" default:""`
	MetricsAddr          string  `envconfig:"METRICS_ADDR" default:""`
	Parallelism          int     `envconfig:"PARALLELISM" default:"0"`
	LogLevel             string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat            string  `envconfig:"LOG_FORMAT" default:"console"`
}

// LoadEnvConfig reads and validates the environment configuration.
func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("CUVS", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the environment configuration.
func (c *EnvConfig) Validate() error {
	if c.MinRecall < 0 || c.MinRecall > 1 {
		return ErrInvalidMinRecall
	}
	if c.RecallTolerance <= 0 || c.ConsistencyTolerance <= 0 {
		return ErrInvalidTolerance
	}
	if c.Parallelism < 0 {
		return ErrInvalidParallelism
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
