// Package config loads the optional YAML configuration file. Values from the
// file sit below environment variables and flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the configuration file at path.
func Load(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration. Unknown keys are rejected.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return AppConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := cfg.Pipeline.IntervalDuration(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.ODPT.CacheTTLDuration(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// IntervalDuration parses the polling interval; empty means zero.
func (p PipelineConfig) IntervalDuration() (time.Duration, error) {
	return parseDuration("pipeline.interval", p.Interval)
}

// CacheTTLDuration parses the static dataset cache TTL; empty means zero.
func (o ODPTConfig) CacheTTLDuration() (time.Duration, error) {
	return parseDuration("odpt.cacheTTL", o.CacheTTL)
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

// Timeout returns the configured request timeout.
func (o ODPTConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutMS) * time.Millisecond
}
