// Package conf loads service configuration from file, environment and
// flags via viper.
package conf

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root service configuration.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`
	DataDir  string `mapstructure:"data_dir" json:"data_dir"`

	// Memory switches the repository and search index to in-process
	// implementations; nothing touches disk.
	Memory bool `mapstructure:"memory" json:"memory"`

	Transcription TranscriptionConfig `mapstructure:"transcription" json:"transcription"`
}

// TranscriptionConfig controls how transcription requests reach a model.
type TranscriptionConfig struct {
	// Provider picks the invoker: "endpoint" posts to a fronting HTTP
	// service, "model" calls the hosted model directly.
	Provider string `mapstructure:"provider" json:"provider"`

	// Endpoint is the fronting service URL for the endpoint provider.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	// Model-provider settings.
	APIKey      string   `mapstructure:"api_key" json:"api_key"`
	BaseURL     string   `mapstructure:"base_url" json:"base_url"`
	Model       string   `mapstructure:"model" json:"model"`
	Temperature *float64 `mapstructure:"temperature" json:"temperature"`

	// PromptPath overrides the embedded instruction text.
	PromptPath string `mapstructure:"prompt_path" json:"prompt_path"`

	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`
}

// Normalize fills defaults and trims user input.
func (c *TranscriptionConfig) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		if c.Endpoint != "" {
			c.Provider = "endpoint"
		} else {
			c.Provider = "model"
		}
	}
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = "gpt-4o-mini-transcribe"
	}
}

// Timeout returns the configured request timeout.
func (c *TranscriptionConfig) Timeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// FromMap applies a partial settings update, as received from the
// settings API, onto the config.
func (c *TranscriptionConfig) FromMap(m map[string]any) error {
	if err := mapstructure.Decode(m, c); err != nil {
		return fmt.Errorf("decode transcription settings: %w", err)
	}
	c.Normalize()
	return nil
}

// Load reads configuration from the optional file path plus LEXY_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", "127.0.0.1:5030")
	v.SetDefault("data_dir", "data")
	v.SetDefault("memory", false)
	v.SetDefault("transcription.provider", "")
	v.SetDefault("transcription.request_timeout_seconds", 120)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Transcription.Normalize()
	return &cfg, nil
}

// DatabasePath returns the sqlite file location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "lexy.db")
}

// SearchIndexPath returns the bleve index location under the data dir.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.DataDir, "search.bleve")
}

// AudioDir returns where uploaded audio is stored.
func (c *Config) AudioDir() string {
	return filepath.Join(c.DataDir, "uploads")
}
