// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure shared by the
// console binaries.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Live      LiveConfig      `yaml:"live"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	App       AppConfig       `yaml:"app"`
	Shop      ShopConfig      `yaml:"shop"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the REST request timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// LiveConfig configures the live update channel.
type LiveConfig struct {
	URL                 string `yaml:"url"`
	PingIntervalSeconds int    `yaml:"ping_interval_seconds"`
}

// WebhookConfig configures outbound integration notifications.
type WebhookConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  Secret `yaml:"api_key"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	StateDir  string `yaml:"state_dir"`
	CartStore string `yaml:"cart_store"` // "file" or "sqlite"
	LogLevel  string `yaml:"log_level"`
}

// ShopConfig identifies the seller's shop (seller console only).
type ShopConfig struct {
	ID string `yaml:"id"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// DefaultConfig returns a config with sensible local-development defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		API:  APIConfig{BaseURL: "http://localhost:8080", TimeoutSeconds: 15},
		Live: LiveConfig{URL: "ws://localhost:8080/ws", PingIntervalSeconds: 30},
		App: AppConfig{
			StateDir:  filepath.Join(home, ".storefront"),
			CartStore: "file",
			LogLevel:  "INFO",
		},
		Telemetry: TelemetryConfig{MetricsPort: 9091, EnableMetrics: false},
	}
}

// LoadConfig reads and validates a yaml config file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Live.URL != "" && !strings.HasPrefix(c.Live.URL, "ws://") && !strings.HasPrefix(c.Live.URL, "wss://") {
		return fmt.Errorf("live.url must be a ws(s) URL, got %q", c.Live.URL)
	}
	switch c.App.CartStore {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("app.cart_store must be \"file\" or \"sqlite\", got %q", c.App.CartStore)
	}
	if c.Telemetry.EnableMetrics && (c.Telemetry.MetricsPort <= 0 || c.Telemetry.MetricsPort > 65535) {
		return fmt.Errorf("telemetry.metrics_port out of range: %d", c.Telemetry.MetricsPort)
	}
	return nil
}

// GetLogLevel returns the configured log level, defaulting to INFO.
func (c *Config) GetLogLevel() string {
	if c.App.LogLevel == "" {
		return "INFO"
	}
	return strings.ToUpper(c.App.LogLevel)
}
