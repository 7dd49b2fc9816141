// ABOUTME: Configuration loading and parsing for ragchat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ragchat configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Agents    []AgentConfig   `yaml:"agents"`
	Documents DocumentsConfig `yaml:"documents"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig holds the default endpoint and request timing
type WebhookConfig struct {
	DefaultEndpoint string        `yaml:"default_endpoint"`
	Timeout         time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// AgentConfig declares one catalog entry
type AgentConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Endpoint     string `yaml:"endpoint"`
	Icon         string `yaml:"icon"`
	AccessSecret string `yaml:"access_secret"`
}

// DocumentsConfig holds the document directory service configuration.
// When URL is empty the seed catalog below serves queries locally.
type DocumentsConfig struct {
	URL    string          `yaml:"url"`
	APIKey string          `yaml:"api_key"`
	Table  string          `yaml:"table"`
	Seed   []SeedDocConfig `yaml:"seed"`
}

// SeedDocConfig declares one locally-served document
type SeedDocConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Size    string `yaml:"size"`
	Kind    string `yaml:"kind"`
	Summary string `yaml:"summary"`
	Content string `yaml:"content"`
	URL     string `yaml:"url"`
}

// FeedbackConfig holds the feedback store configuration
type FeedbackConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	seen := make(map[string]bool)
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent entry missing id")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Endpoint == "" && c.Webhook.DefaultEndpoint == "" {
			return fmt.Errorf("agent %q has no endpoint and webhook.default_endpoint is unset", a.ID)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Webhook.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Webhook.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing webhook timeout %q: %w", cfg.Webhook.TimeoutRaw, err)
		}
		cfg.Webhook.Timeout = timeout
	}
	return nil
}
