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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.K != 50 {
		t.Errorf("K = %d, want 50", config.K)
	}
	if config.Regression != RegressionLocallyConstant {
		t.Errorf("Regression = %v, want locally_constant", config.Regression)
	}
	if config.Sampling != SamplingGaussian {
		t.Errorf("Sampling = %v, want gaussian", config.Sampling)
	}
	if config.Parallel.Enabled {
		t.Error("Parallel should be disabled by default")
	}
	if config.Parallel.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", config.Parallel.MaxConcurrency)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseRegression(t *testing.T) {
	tests := []struct {
		in      string
		want    Regression
		wantErr bool
	}{
		{"locally_constant", RegressionLocallyConstant, false},
		{"increment", RegressionIncrement, false},
		{"local_linear", RegressionLocalLinear, false},
		{"global_linear", 0, true},
		{"forest", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseRegression(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRegression(%q) expected error", tt.in)
			}
			if err != nil && !errors.Is(err, ErrUnknownRegression) {
				t.Errorf("ParseRegression(%q) error = %v, want ErrUnknownRegression", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRegression(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRegression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseSampling(t *testing.T) {
	tests := []struct {
		in      string
		want    Sampling
		wantErr bool
	}{
		{"gaussian", SamplingGaussian, false},
		{"multinomial", SamplingMultinomial, false},
		{"uniform", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseSampling(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSampling(%q) expected error", tt.in)
			}
			if err != nil && !errors.Is(err, ErrUnknownSampling) {
				t.Errorf("ParseSampling(%q) error = %v, want ErrUnknownSampling", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSampling(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSampling(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRegression_String_RoundTrip(t *testing.T) {
	for _, r := range []Regression{RegressionLocallyConstant, RegressionIncrement, RegressionLocalLinear} {
		parsed, err := ParseRegression(r.String())
		if err != nil {
			t.Errorf("round trip %v: %v", r, err)
		}
		if parsed != r {
			t.Errorf("round trip %v = %v", r, parsed)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"zero k", func(c *Config) { c.K = 0 }, ErrNeighborCount},
		{"negative k", func(c *Config) { c.K = -3 }, ErrNeighborCount},
		{"bad regression", func(c *Config) { c.Regression = Regression(42) }, ErrUnknownRegression},
		{"bad sampling", func(c *Config) { c.Sampling = Sampling(42) }, ErrUnknownSampling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_ParallelConcurrency(t *testing.T) {
	config := DefaultConfig()
	config.Parallel.Enabled = true
	config.Parallel.MaxConcurrency = 0
	if err := config.Validate(); err == nil {
		t.Error("expected error for enabled parallelism with zero concurrency")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config != DefaultConfig() {
		t.Errorf("LoadConfig(\"\") = %+v, want defaults", config)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast.yaml")
	content := "k: 7\nregression: local_linear\nsampling: multinomial\nparallel:\n  enabled: true\n  max_concurrency: 2\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.K != 7 {
		t.Errorf("K = %d, want 7", config.K)
	}
	if config.Regression != RegressionLocalLinear {
		t.Errorf("Regression = %v, want local_linear", config.Regression)
	}
	if config.Sampling != SamplingMultinomial {
		t.Errorf("Sampling = %v, want multinomial", config.Sampling)
	}
	if !config.Parallel.Enabled || config.Parallel.MaxConcurrency != 2 {
		t.Errorf("Parallel = %+v, want enabled with concurrency 2", config.Parallel)
	}
}

func TestLoadConfig_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast.json")
	content := `{"k": 3, "regression": "increment", "sampling": "gaussian"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.K != 3 {
		t.Errorf("K = %d, want 3", config.K)
	}
	if config.Regression != RegressionIncrement {
		t.Errorf("Regression = %v, want increment", config.Regression)
	}
}

func TestLoadConfig_UnknownStrategyInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast.yaml")
	if err := os.WriteFile(path, []byte("regression: forest\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for unknown regression in file")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if config != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", config)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ANALOG_K", "9")
	t.Setenv("ANALOG_REGRESSION", "increment")
	t.Setenv("ANALOG_SAMPLING", "multinomial")
	t.Setenv("ANALOG_PARALLEL_ENABLED", "true")
	t.Setenv("ANALOG_MAX_CONCURRENCY", "8")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.K != 9 {
		t.Errorf("K = %d, want 9", config.K)
	}
	if config.Regression != RegressionIncrement {
		t.Errorf("Regression = %v, want increment", config.Regression)
	}
	if config.Sampling != SamplingMultinomial {
		t.Errorf("Sampling = %v, want multinomial", config.Sampling)
	}
	if !config.Parallel.Enabled {
		t.Error("Parallel.Enabled should be true")
	}
	if config.Parallel.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", config.Parallel.MaxConcurrency)
	}
}

func TestLoadConfig_EnvUnknownStrategy(t *testing.T) {
	t.Setenv("ANALOG_REGRESSION", "forest")
	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error for unknown regression in env")
	}
}
