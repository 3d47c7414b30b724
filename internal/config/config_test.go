package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
nation:
  slug: demo
  access_token: file-token
client:
  concurrency: 8
filter:
  volunteers: 'hasTag("volunteer")'
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Nation.Slug)
	assert.Equal(t, "file-token", cfg.Nation.AccessToken)
	assert.Equal(t, 8, cfg.Client.Concurrency)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Color)
	assert.Equal(t, `hasTag("volunteer")`, cfg.Filter["volunteers"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "nation:\n  slug: demo\n  access_token: file-token\n")

	t.Setenv("NATIONBUILDER_NATION_ACCESS_TOKEN", "env-token")
	t.Setenv("NATIONBUILDER_OUTPUT_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Nation.AccessToken)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoad_TokenExpiry(t *testing.T) {
	path := writeConfig(t, "nation:\n  slug: demo\noauth:\n  refresh_token: r1\n  expires_at: \"2026-10-19T12:00:00Z\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	exp, err := cfg.OAuth.Expiry()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), exp)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config")
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: chatty\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nation.slug is required")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Nation:  NationConfig{Slug: "demo"},
			Client:  ClientConfig{MaxRetries: 3, Concurrency: 5},
			Output:  OutputConfig{Format: "table"},
			Logging: LoggingConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name: "base url without slug",
			modify: func(c *Config) {
				c.Nation.Slug = ""
				c.Nation.BaseURL = "http://localhost:3000"
			},
		},
		{
			name:    "client id without secret",
			modify:  func(c *Config) { c.OAuth.ClientID = "app" },
			wantErr: "oauth.client_secret",
		},
		{
			name:    "invalid token expiry",
			modify:  func(c *Config) { c.OAuth.ExpiresAt = "tomorrow" },
			wantErr: "oauth.expires_at",
		},
		{
			name:   "token expiry",
			modify: func(c *Config) { c.OAuth.ExpiresAt = "2026-10-19T12:00:00Z" },
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Client.MaxRetries = -1 },
			wantErr: "client.max_retries",
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.Client.Concurrency = 0 },
			wantErr: "client.concurrency",
		},
		{
			name:    "invalid output",
			modify:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "output format",
		},
		{
			name:    "invalid level",
			modify:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "logging level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "logfmt" },
			wantErr: "logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}
