// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// OwnerID is the actor id holding the owner role. There is exactly one
	// owner and it is fixed for the lifetime of the process.
	OwnerID string `koanf:"owner_id"`

	// Providers lists actor ids granted the provider role at startup.
	// The owner can grow or shrink the set at runtime.
	Providers []string `koanf:"providers"`

	// CooldownSeconds is the minimum interval between two actions of the
	// same class by the same actor. Must be positive.
	CooldownSeconds int64 `koanf:"cooldown_seconds"`

	// InstanceID is mixed into every snapshot hash so a proof produced for
	// one deployment can never satisfy another.
	InstanceID string `koanf:"instance_id"`

	// OracleToken authenticates the oracle callback endpoint.
	OracleToken string `koanf:"oracle_token"`

	// CallbackLatencyMinMS and CallbackLatencyMaxMS bound the simulated
	// oracle's callback delay.
	CallbackLatencyMinMS int `koanf:"callback_latency_min_ms"`
	CallbackLatencyMaxMS int `koanf:"callback_latency_max_ms"`

	// MaxEventLimit caps GET /events?limit.
	MaxEventLimit int `koanf:"max_event_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		OwnerID:              "owner",
		Providers:            nil,
		CooldownSeconds:      60,
		InstanceID:           "skillproof-dev",
		OracleToken:          "dev-oracle-token",
		CallbackLatencyMinMS: 20,
		CallbackLatencyMaxMS: 80,
		MaxEventLimit:        500,
	}
}
