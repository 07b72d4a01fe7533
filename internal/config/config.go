package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the service configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Scoring struct {
		// MaxConfs is the default conformer budget for 3D evaluators
		// created without an explicit max_confs.
		MaxConfs int `env:"SCORING_MAX_CONFS" envDefault:"50"`
		// EmbedSeed seeds the embedding engine; 0 draws from the clock.
		EmbedSeed int64 `env:"SCORING_EMBED_SEED" envDefault:"0"`
		// DockingFallbackScore replaces the score of molecules that
		// cannot be docked. Must sort worse than any genuine score.
		DockingFallbackScore float64 `env:"SCORING_DOCKING_FALLBACK" envDefault:"1000"`
	}
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
