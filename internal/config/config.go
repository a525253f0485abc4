// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config is the validated runtime configuration.
type Config struct {
	AnthropicAPIKey  string
	AnthropicBaseURL string
	ClaudeModel      string

	TelegramBotToken string
	TelegramChatID   string

	EnableDesktopDetection bool
	WatchDir               string

	ServerPort    int
	StoreCapacity int
}

// Load reads configuration from environment variables with defaults applied.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", 5001)
	v.SetDefault("ENABLE_DESKTOP_DETECTION", false)
	v.SetDefault("STORE_CAPACITY", 200)
	v.SetDefault("ANTHROPIC_BASE_URL", "")
	v.SetDefault("CLAUDE_MODEL", "")
	v.SetDefault("WATCH_DIR", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("TELEGRAM_CHAT_ID", "")

	v.AutomaticEnv()

	cfg := &Config{
		AnthropicAPIKey:        v.GetString("ANTHROPIC_API_KEY"),
		AnthropicBaseURL:       v.GetString("ANTHROPIC_BASE_URL"),
		ClaudeModel:            v.GetString("CLAUDE_MODEL"),
		TelegramBotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:         v.GetString("TELEGRAM_CHAT_ID"),
		EnableDesktopDetection: v.GetBool("ENABLE_DESKTOP_DETECTION"),
		WatchDir:               v.GetString("WATCH_DIR"),
		ServerPort:             v.GetInt("SERVER_PORT"),
		StoreCapacity:          v.GetInt("STORE_CAPACITY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks boundary requirements.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required")
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d", c.ServerPort)
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// TelegramConfigured reports whether notifications can be sent.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("0.0.0.0:%d", c.ServerPort)
}
