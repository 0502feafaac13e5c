// Package config loads git2gpt settings from a YAML file and
// the API credential from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/byte4ever/git2gpt/chat/openai"
	"github.com/byte4ever/git2gpt/mutation"
)

// Defaults.
const (
	DefaultModel         = "gpt-4"
	DefaultAPIKeyEnv     = "OPENAI_API_KEY"
	DefaultMaxTokens     = 4096
	DefaultEnvFile       = ".env"
	DefaultCommitMessage = "Applied GPT-4 suggested changes."
)

// Config is the content of the configuration file.
type Config struct {
	// Model is the chat model identifier.
	Model string `yaml:"model"`
	// APIBase is the chat API root URL.
	APIBase string `yaml:"api_base"`
	// APIKeyEnv names the environment variable holding
	// the credential.
	APIKeyEnv string `yaml:"api_key_env"`
	// MaxTokens caps the reply length.
	MaxTokens int `yaml:"max_tokens"`
	// Timeout bounds the chat request (Go duration, empty
	// for none).
	Timeout string `yaml:"timeout"`
	// EnvFile is loaded into the environment before the
	// credential is read. A missing file is ignored.
	EnvFile string `yaml:"env_file"`
	// CommitMessage is the commit subject line.
	CommitMessage string `yaml:"commit_message"`
	// ResponseFile receives unparseable model replies.
	ResponseFile string `yaml:"response_file"`
	// SystemPrompt overrides the persona template.
	SystemPrompt string `yaml:"system_prompt"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// DefaultPath returns $XDG_CONFIG_HOME/git2gpt/config.yaml
// (or the platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}

	return filepath.Join(dir, "git2gpt", "config.yaml"), nil
}

// Load reads and parses the configuration file at path.
// When optional is true a missing file yields the defaults.
func Load(path string, optional bool) (*Config, error) {
	const errCtx = "loading config"

	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if errors.Is(err, fs.ErrNotExist) && optional {
		slog.Debug("no config file, using defaults", "path", path)

		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", errCtx, path, err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid %s: %w", errCtx, path, err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in string fields
func (c *Config) expandEnv() {
	c.APIBase = os.ExpandEnv(c.APIBase)
	c.EnvFile = os.ExpandEnv(c.EnvFile)
	c.ResponseFile = os.ExpandEnv(c.ResponseFile)
}

// applyDefaults fills in zero-value fields.
func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}

	if c.APIBase == "" {
		c.APIBase = openai.DefaultBaseURL
	}

	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}

	if c.EnvFile == "" {
		c.EnvFile = DefaultEnvFile
	}

	if c.CommitMessage == "" {
		c.CommitMessage = DefaultCommitMessage
	}

	if c.ResponseFile == "" {
		c.ResponseFile = mutation.DefaultDumpPath
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative: %d", c.MaxTokens)
	}

	if _, err := c.RequestTimeout(); err != nil {
		return err
	}

	return nil
}

// RequestTimeout parses Timeout. Empty means no timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}

	return d, nil
}

// LoadEnv loads EnvFile into the process environment.
// Variables already set are kept. A missing file is not an
// error.
func (c *Config) LoadEnv() error {
	if c.EnvFile == "" {
		return nil
	}

	err := godotenv.Load(c.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no env file", "path", c.EnvFile)

		return nil
	}

	if err != nil {
		return fmt.Errorf("loading env file %s: %w", c.EnvFile, err)
	}

	slog.Debug("loaded env file", "path", c.EnvFile)

	return nil
}

// APIKey returns the credential from the environment.
func (c *Config) APIKey() (string, error) {
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf(
			"environment variable %s is not set", c.APIKeyEnv,
		)
	}

	return key, nil
}

// Provider builds the chat provider. LoadEnv must run first
// so the credential is visible.
func (c *Config) Provider() (*openai.Provider, error) {
	const errCtx = "configuring chat provider"

	key, err := c.APIKey()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	timeout, err := c.RequestTimeout()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	p, err := openai.NewProvider(openai.Config{
		BaseURL:   c.APIBase,
		APIKey:    key,
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		Timeout:   timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return p, nil
}
