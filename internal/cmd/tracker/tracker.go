// Package tracker parses tracker service flags and launches the service.
package tracker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/orion/internal/platform/cmd"
	server "github.com/louisbranch/orion/internal/services/tracker/app"
)

// Config holds tracker command configuration.
type Config struct {
	HTTPAddr   string        `env:"TRACKER_HTTP_ADDR" envDefault:":8080"`
	DBPath     string        `env:"TRACKER_DB_PATH" envDefault:"data/orion.db"`
	JWTSecret  string        `env:"TRACKER_JWT_SECRET,notEmpty"`
	TokenTTL   time.Duration `env:"TRACKER_TOKEN_TTL" envDefault:"30m"`
	BcryptCost int           `env:"TRACKER_BCRYPT_COST" envDefault:"10"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The tracker HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The tracker SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the tracker HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTracker, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:   cfg.HTTPAddr,
			DBPath:     cfg.DBPath,
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   cfg.TokenTTL,
			BcryptCost: cfg.BcryptCost,
		})
	})
}
