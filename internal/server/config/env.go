package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// parseEnv overlays SPEECHCOACH_* environment variables onto config. Unset
// variables leave the current value untouched.
func parseEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}
