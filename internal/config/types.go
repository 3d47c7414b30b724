package config

// Config represents the complete configuration structure
type Config struct {
	Nation  NationConfig  `mapstructure:"nation"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Client  ClientConfig  `mapstructure:"client"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NationConfig identifies the nation and how to reach it
type NationConfig struct {
	Slug string `mapstructure:"slug"`
	// BaseURL overrides https://<slug>.nationbuilder.com/
	BaseURL     string `mapstructure:"base_url"`
	AccessToken string `mapstructure:"access_token"`
}

// OAuthConfig holds the credentials of the OAuth application
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	RefreshToken string `mapstructure:"refresh_token"`
	// ExpiresAt is the RFC 3339 expiry of nation.access_token.
	ExpiresAt string `mapstructure:"expires_at"`
}

// ClientConfig tunes the API client
type ClientConfig struct {
	UserAgent   string `mapstructure:"user_agent"`
	MaxRetries  int    `mapstructure:"max_retries"`
	Concurrency int    `mapstructure:"concurrency"`
}

// FilterConfig maps preset names to filter expressions
type FilterConfig map[string]string

// OutputConfig controls how results are printed
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
