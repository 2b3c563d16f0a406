package arbiter

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the deployment-wide protocol constants and daemon settings.
// TIMEOUT and DEFAULT_TIMEOUT_STAKE are fixed per deployment, never per game.
type Config struct {
	// Timeout is how long an accused player has to answer a liveness claim.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10m"`

	// DefaultTimeoutStake is the bond, in atoms, a player must post to open
	// a liveness claim.
	DefaultTimeoutStake int64 `env:"DEFAULT_TIMEOUT_STAKE" envDefault:"100000000"`

	DataDir    string `env:"DATA_DIR" envDefault:"."`
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8480"`
	DebugLevel string `env:"DEBUG_LEVEL" envDefault:"info"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("TIMEOUT must be positive, got %s", cfg.Timeout)
	}
	if cfg.DefaultTimeoutStake < 0 {
		return nil, fmt.Errorf("DEFAULT_TIMEOUT_STAKE must not be negative, got %d", cfg.DefaultTimeoutStake)
	}
	return cfg, nil
}
