package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when no path is given and BREWLOG_CONFIG is unset.
const DefaultPath = "./brewlog.yaml"

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
//
// The file is path if non-empty, else BREWLOG_CONFIG, else DefaultPath.
// An explicitly named file must exist; a missing DefaultPath means
// ENV + defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	explicitPath := true
	if path == "" {
		path = os.Getenv("BREWLOG_CONFIG")
	}
	if path == "" {
		path, explicitPath = DefaultPath, false
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}
