package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/embed"
)

type Config struct {
	LogLevel  slog.Level     `toml:"loglevel"`
	RedisAddr string         `toml:"redis_addr"`
	Claude    *claude.Config `toml:"claude"`
	Embedding embed.Config   `toml:"embedding"`
}

func Default() *Config {
	return &Config{
		LogLevel:  slog.LevelInfo,
		RedisAddr: "localhost:6379",
		Claude:    claude.DefaultConfig(),
		Embedding: embed.DefaultConfig(),
	}
}

// Load reads config.toml from the user config dir, writing the defaults
// there on first run so the file is discoverable and editable.
func Load() (*Config, error) {
	config := Default()

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	configDir := filepath.Join(userConfigDir, "bones-agent")
	if _, err := os.Stat(configDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, err
		}
	}

	configFile := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(configFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		data, err := toml.Marshal(config)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(configFile, data, 0644); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if config.Claude == nil {
		config.Claude = claude.DefaultConfig()
	}
	return config, nil
}
