// Package config loads typed process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix namespaces every variable read by ParseEnv. Struct tags name the
// variable without it: `env:"TRACKER_DB_PATH"` reads ORION_TRACKER_DB_PATH.
const Prefix = "ORION_"

// ParseEnv loads configuration from prefixed environment variables.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: Prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
