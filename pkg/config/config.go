// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Completion backends understood by providers.New.
const (
	BackendREST   = "rest"
	BackendGenAI  = "genai"
	BackendOpenAI = "openai"
)

type Config struct {
	Discord    DiscordConfig
	Completion CompletionConfig

	// PersonaFile optionally points to a YAML file overriding the built-in
	// persona strings.
	PersonaFile string `env:"PERSONA_FILE"`

	Debug  bool   `env:"DEBUG"`
	LogDir string `env:"LOG_DIR"`
}

type DiscordConfig struct {
	Token        string `env:"TOKEN"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	GuildID      string `env:"GUILD_ID"`

	// ChatChannelID is the free-chat channel. Empty disables gating and
	// every channel is eligible.
	ChatChannelID string `env:"CHANNEL_ID"`
	// WelcomeChannelID receives member-join and voice-join notices.
	WelcomeChannelID string `env:"WELCOME_CHANNEL_ID"`
}

type CompletionConfig struct {
	APIKey  string        `env:"GOOGLE_API_KEY"`
	Backend string        `env:"COMPLETION_BACKEND" envDefault:"rest"`
	Model   string        `env:"COMPLETION_MODEL" envDefault:"gemini-2.0-flash-exp"`
	BaseURL string        `env:"COMPLETION_BASE_URL"`
	Timeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`
}

// Load reads a .env file from the working directory, when present, and then
// parses the environment. Variables already set take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// ValidateServe checks what the long-running bot needs.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("TOKEN is required"))
	}
	if c.Completion.APIKey == "" {
		errs = append(errs, errors.New("GOOGLE_API_KEY is required"))
	}
	switch c.Completion.Backend {
	case BackendREST, BackendGenAI, BackendOpenAI:
	default:
		errs = append(errs, fmt.Errorf("COMPLETION_BACKEND %q is not one of rest, genai, openai", c.Completion.Backend))
	}
	return errors.Join(errs...)
}

// ValidateDeploy checks what command registration needs.
func (c *Config) ValidateDeploy() error {
	var errs []error
	if c.Discord.ClientID == "" {
		errs = append(errs, errors.New("CLIENT_ID is required"))
	}
	if c.Discord.Token == "" && c.Discord.ClientSecret == "" {
		errs = append(errs, errors.New("one of TOKEN or CLIENT_SECRET is required"))
	}
	return errors.Join(errs...)
}
