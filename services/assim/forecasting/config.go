// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forecasting

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Regression identifies the local regression strategy that turns the k
// retrieved neighbors into a forecast mean and covariance.
//
// The set is closed: switch statements over Regression in this package
// carry no default fallthrough to a silent behavior, an unknown value is
// always ErrUnknownRegression.
type Regression int

const (
	// RegressionLocallyConstant forecasts the weighted average of the
	// neighbors' successors.
	RegressionLocallyConstant Regression = iota

	// RegressionIncrement forecasts the member's current value plus the
	// weighted average successor-minus-analog increment.
	RegressionIncrement

	// RegressionLocalLinear fits a weighted linear regression of
	// successors on analog context values over a truncated
	// principal-component basis.
	RegressionLocalLinear
)

// String returns the configuration name of the strategy.
func (r Regression) String() string {
	switch r {
	case RegressionLocallyConstant:
		return "locally_constant"
	case RegressionIncrement:
		return "increment"
	case RegressionLocalLinear:
		return "local_linear"
	default:
		return "unknown"
	}
}

// ParseRegression converts a configuration string to a Regression.
//
// Inputs:
//   - s: One of "locally_constant", "increment", "local_linear".
//
// Outputs:
//   - Regression: The parsed strategy.
//   - error: ErrUnknownRegression for any other string.
func ParseRegression(s string) (Regression, error) {
	switch s {
	case "locally_constant":
		return RegressionLocallyConstant, nil
	case "increment":
		return RegressionIncrement, nil
	case "local_linear":
		return RegressionLocalLinear, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegression, s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Regression) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseRegression(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Regression) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRegression(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Regression) MarshalYAML() (interface{}, error) { return r.String(), nil }

// MarshalJSON implements json.Marshaler.
func (r Regression) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// Sampling identifies how one forecast state is drawn per member from
// the estimated distribution.
type Sampling int

const (
	// SamplingGaussian draws from a multivariate normal parameterized by
	// the forecast mean and covariance.
	SamplingGaussian Sampling = iota

	// SamplingMultinomial draws one neighbor candidate according to the
	// sampling weights and returns its raw forecast value.
	SamplingMultinomial
)

// String returns the configuration name of the strategy.
func (s Sampling) String() string {
	switch s {
	case SamplingGaussian:
		return "gaussian"
	case SamplingMultinomial:
		return "multinomial"
	default:
		return "unknown"
	}
}

// ParseSampling converts a configuration string to a Sampling.
//
// Inputs:
//   - s: One of "gaussian", "multinomial".
//
// Outputs:
//   - Sampling: The parsed strategy.
//   - error: ErrUnknownSampling for any other string.
func ParseSampling(s string) (Sampling, error) {
	switch s {
	case "gaussian":
		return SamplingGaussian, nil
	case "multinomial":
		return SamplingMultinomial, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSampling, s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Sampling) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseSampling(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sampling) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSampling(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Sampling) MarshalYAML() (interface{}, error) { return s.String(), nil }

// MarshalJSON implements json.Marshaler.
func (s Sampling) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// Config contains the forecast configuration. It is immutable per call.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after the
// Forecaster is created.
type Config struct {
	// K is the number of nearest analogs retrieved per member.
	// Must be >= 1 and at most the catalog size.
	K int `json:"k" yaml:"k"`

	// Regression selects the local regression strategy.
	Regression Regression `json:"regression" yaml:"regression"`

	// Sampling selects the per-member sampling strategy.
	Sampling Sampling `json:"sampling" yaml:"sampling"`

	// Parallel contains the member-stage parallelism settings.
	Parallel ParallelConfig `json:"parallel" yaml:"parallel"`
}

// ParallelConfig configures parallel execution of the per-member stage.
type ParallelConfig struct {
	// Enabled turns on the parallel member stage.
	// Default: false
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxConcurrency bounds the number of concurrent member workers.
	// Default: 4
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
}

// DefaultConfig returns the default configuration.
//
// Outputs:
//   - Config: Defaults (k=50, locally-constant regression, gaussian
//     sampling, parallel stage disabled).
func DefaultConfig() Config {
	return Config{
		K:          50,
		Regression: RegressionLocallyConstant,
		Sampling:   SamplingGaussian,
		Parallel: ParallelConfig{
			Enabled:        false,
			MaxConcurrency: 4,
		},
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or if the merged
//     configuration fails validation.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadConfigFromEnv(&config); err != nil {
		return config, fmt.Errorf("load config env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	return nil
}

func loadConfigFromEnv(config *Config) error {
	if v := os.Getenv("ANALOG_K"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.K = i
		}
	}
	if v := os.Getenv("ANALOG_REGRESSION"); v != "" {
		r, err := ParseRegression(v)
		if err != nil {
			return err
		}
		config.Regression = r
	}
	if v := os.Getenv("ANALOG_SAMPLING"); v != "" {
		s, err := ParseSampling(v)
		if err != nil {
			return err
		}
		config.Sampling = s
	}
	if v := os.Getenv("ANALOG_PARALLEL_ENABLED"); v != "" {
		config.Parallel.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ANALOG_MAX_CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Parallel.MaxConcurrency = i
		}
	}
	return nil
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Non-nil if configuration is invalid. Unrecognized strategy
//     values surface as ErrUnknownRegression / ErrUnknownSampling.
func (c Config) Validate() error {
	if c.K < 1 {
		return fmt.Errorf("%w: k must be >= 1, got %d", ErrNeighborCount, c.K)
	}
	switch c.Regression {
	case RegressionLocallyConstant, RegressionIncrement, RegressionLocalLinear:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRegression, c.Regression)
	}
	switch c.Sampling {
	case SamplingGaussian, SamplingMultinomial:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownSampling, c.Sampling)
	}
	if c.Parallel.Enabled && c.Parallel.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be >= 1")
	}
	return nil
}
