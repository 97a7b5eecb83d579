package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "file", cfg.App.CartStore)
	assert.Equal(t, "INFO", cfg.GetLogLevel())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://shop.example.com
  timeout_seconds: 30
live:
  url: wss://shop.example.com/ws
webhook:
  base_url: https://hooks.example.com
  api_key: super-secret
app:
  cart_store: sqlite
  log_level: debug
shop:
  id: shop-42
telemetry:
  enable_metrics: true
  metrics_port: 9100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, "wss://shop.example.com/ws", cfg.Live.URL)
	assert.Equal(t, "sqlite", cfg.App.CartStore)
	assert.Equal(t, "shop-42", cfg.Shop.ID)
	assert.Equal(t, "DEBUG", cfg.GetLogLevel())
	assert.Equal(t, 9100, cfg.Telemetry.MetricsPort)
	assert.Equal(t, Secret("super-secret"), cfg.Webhook.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty api url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url"},
		{"non-http api url", func(c *Config) { c.API.BaseURL = "ftp://x" }, "api.base_url"},
		{"non-ws live url", func(c *Config) { c.Live.URL = "http://x" }, "live.url"},
		{"unknown cart store", func(c *Config) { c.App.CartStore = "redis" }, "cart_store"},
		{"bad metrics port", func(c *Config) {
			c.Telemetry.EnableMetrics = true
			c.Telemetry.MetricsPort = 99999
		}, "metrics_port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "api: [not: a map")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestTimeoutFallback(t *testing.T) {
	assert.Equal(t, "15s", APIConfig{}.Timeout().String())
	assert.Equal(t, "45s", APIConfig{TimeoutSeconds: 45}.Timeout().String())
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("hunter2")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, `"[REDACTED]"`, fmt.Sprintf("%#v", s))
	assert.Equal(t, "", Secret("").String())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(out))

	yamlOut, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(yamlOut), "[REDACTED]")

	// The raw value stays accessible for actual use.
	assert.Equal(t, "hunter2", string(s))
}
