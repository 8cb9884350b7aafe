package claude

import (
	"fmt"
	"os"
)

type Config struct {
	BaseURL          string   `toml:"base_url"`
	APIKey           string   `toml:"api_key"`
	APIKeyFromEnv    string   `toml:"api_key_env"`
	AnthropicVersion string   `toml:"anthropic_version"`
	MaxTokens        int      `toml:"max_tokens"`
	Models           []string `toml:"models"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://api.anthropic.com/",
		APIKeyFromEnv:    "ANTHROPIC_API_KEY",
		AnthropicVersion: "2023-06-01",
		MaxTokens:        16384,
		Models: []string{
			"claude-opus-4-6",
			"claude-sonnet-4-5",
			"claude-haiku-4-5",
		},
	}
}

// ResolveAPIKey returns the key to use for a session. An explicit key
// (e.g. carried by the host's init message) wins over the config.
func (c *Config) ResolveAPIKey(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyFromEnv != "" {
		if key := os.Getenv(c.APIKeyFromEnv); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("env variable %s not defined", c.APIKeyFromEnv)
	}
	return "", fmt.Errorf("either api_key or api_key_env must be specified")
}
