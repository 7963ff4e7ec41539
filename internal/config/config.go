// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the service. All fields have working
// defaults so the binary runs with an empty environment.
type Config struct {
	// DataDir is the root of the per-user workspace tree.
	DataDir string `env:"NUTRIMIND_DATA_DIR"`
	// DBPath is the SQLite health database location.
	DBPath string `env:"NUTRIMIND_DB_PATH"`
	// AnalyzerURL is the base URL of the meal analysis service.
	AnalyzerURL string `env:"NUTRIMIND_ANALYZER_URL" envDefault:"http://localhost:8123"`
	// Workers and QueueSize bound the fire-and-forget task pool.
	Workers   int `env:"NUTRIMIND_WORKERS" envDefault:"4"`
	QueueSize int `env:"NUTRIMIND_QUEUE_SIZE" envDefault:"64"`
	// LogFile receives structured logs; empty means stderr. Stdout is
	// never used, it carries the MCP transport.
	LogFile  string `env:"NUTRIMIND_LOG_FILE"`
	LogLevel string `env:"NUTRIMIND_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills in path defaults under the
// user's home directory.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.DataDir == "" || cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve home dir: %w", err)
		}
		base := filepath.Join(home, ".nutrimind")
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Join(base, "workspaces")
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(base, "health.db")
		}
	}
	return cfg, nil
}
