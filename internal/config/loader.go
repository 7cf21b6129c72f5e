package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RIBS_CONFIG is set
//  3. env (prefix RIBS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RIBS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RIBS_ADDR, RIBS_SLOUCH_THRESHOLD, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("RIBS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ribs_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.SlouchThreshold < 0 || c.SlouchThreshold > 1 {
		return fmt.Errorf("%w: slouch_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	if c.SeriesWindowMinutes <= 0 {
		return fmt.Errorf("%w: series_window_minutes must be positive", ErrInvalidConfig)
	}
	if c.EventsLimit <= 0 {
		return fmt.Errorf("%w: events_limit must be positive", ErrInvalidConfig)
	}
	if c.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("%w: sample_interval_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
