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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SKILLPROOF_CONFIG is set
//  3. env (prefix SKILLPROOF_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SKILLPROOF_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SKILLPROOF_ADDR, SKILLPROOF_OWNER_ID, ...
	// Map env keys like SKILLPROOF_COOLDOWN_SECONDS -> cooldown_seconds.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SKILLPROOF_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "skillproof_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
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
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.OwnerID) == "":
		return fmt.Errorf("%w: owner_id must not be empty", ErrInvalidConfig)
	case c.CooldownSeconds <= 0:
		return fmt.Errorf("%w: cooldown_seconds must be positive", ErrInvalidConfig)
	case c.InstanceID == "":
		return fmt.Errorf("%w: instance_id must not be empty", ErrInvalidConfig)
	case c.CallbackLatencyMinMS < 0 || c.CallbackLatencyMaxMS < c.CallbackLatencyMinMS:
		return fmt.Errorf("%w: callback latency bounds are inverted", ErrInvalidConfig)
	case c.MaxEventLimit <= 0:
		return fmt.Errorf("%w: max_event_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
