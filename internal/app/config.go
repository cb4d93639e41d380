package app

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config tunes the bundled server. Values are resolved in order: built-in
// defaults, then the YAML file, then environment variables.
type Config struct {
	// Addr is the listen address.
	Addr string `env:"ADDR" yaml:"addr"`

	// WSPath is the websocket endpoint path.
	WSPath string `env:"WS_PATH" yaml:"ws_path"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Addr:     ":8000",
		WSPath:   "/ws",
		LogLevel: "info",
	}
}

// LoadConfig resolves the server configuration. path names an optional YAML
// file; an empty path skips the file layer.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
