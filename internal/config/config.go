package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"thde.io/nationbuilder"
)

// EnvPrefix prefixes environment variables overriding config keys,
// e.g. NATIONBUILDER_NATION_ACCESS_TOKEN for nation.access_token.
const EnvPrefix = "NATIONBUILDER"

// Load loads the configuration from file and environment.
// Without an explicit path a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".nationbuilder"))
		}
		v.AddConfigPath("/etc/nationbuilder/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
// Every key has a default so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("nation.slug", "")
	v.SetDefault("nation.base_url", "")
	v.SetDefault("nation.access_token", "")

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_uri", "")
	v.SetDefault("oauth.refresh_token", "")
	v.SetDefault("oauth.expires_at", "")

	v.SetDefault("client.user_agent", "")
	v.SetDefault("client.max_retries", nationbuilder.DefaultMaxRetries)
	v.SetDefault("client.concurrency", nationbuilder.DefaultConcurrency)

	v.SetDefault("output.format", "table")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// Expiry parses ExpiresAt. An empty value gives the zero time.
func (o OAuthConfig) Expiry() (time.Time, error) {
	if o.ExpiresAt == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, o.ExpiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid oauth.expires_at: %w", err)
	}

	return t, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Nation.Slug == "" && cfg.Nation.BaseURL == "" {
		return fmt.Errorf("nation.slug is required")
	}

	if cfg.OAuth.ClientID != "" && cfg.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required with oauth.client_id")
	}
	if _, err := cfg.OAuth.Expiry(); err != nil {
		return err
	}

	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries must not be negative")
	}
	if cfg.Client.Concurrency < 1 {
		return fmt.Errorf("client.concurrency must be at least 1")
	}

	validOutputs := map[string]bool{
		"table": true,
		"json":  true,
	}
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("invalid output format: %s", cfg.Output.Format)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
