package nationbuilder

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

const (
	// URLTemplate is the endpoint of a nation, formatted with its slug.
	URLTemplate = "https://%s.nationbuilder.com/"

	// DefaultMaxRetries is the number of times a rate limited request is retried.
	DefaultMaxRetries = 3
	// DefaultConcurrency is the number of requests batch helpers run in parallel.
	DefaultConcurrency = 5

	modulePath = "thde.io/nationbuilder"
)

var (
	// ErrStatus is returned when the API returns an unexpected status code.
	ErrStatus = errors.New("unexpected status code")
	// ErrNoAccessToken is returned when no access token is available.
	ErrNoAccessToken = errors.New("no access token available")
	// ErrNoRefreshToken is returned when no refresh token is available.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrNoOAuthClient is returned when an OAuth flow is started without client credentials.
	ErrNoOAuthClient = errors.New("no oauth client configured")
	// ErrRateLimit is returned when the rate limit is exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrFieldNotFound is returned when a resource has no field of the requested name.
	ErrFieldNotFound = errors.New("field not found")
	// ErrWebhookToken is returned when a webhook delivery carries the wrong token.
	ErrWebhookToken = errors.New("invalid webhook token")
)

// Client holds configuration needed to call the NationBuilder API of a single nation.
// Use [New] to create a new client.
type Client struct {
	baseURL *url.URL

	slug       string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger

	maxRetries  int
	concurrency int

	auth *tokenStore

	retryAfterMU sync.Mutex
	retryAfter   time.Time
}

// ClientOption configures a Client before use.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets a custom User-Agent header for API requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithAccessToken configures a long lived access token, e.g. a test token
// created in the nation's control panel.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.auth.token = token
	}
}

// WithToken restores a token persisted from [Client.Token], so an expired
// access token is refreshed before it is used.
func WithToken(token Token) ClientOption {
	return func(c *Client) {
		c.auth.token = token.AccessToken
		c.auth.expiresAt = token.ExpiresAt
		if token.RefreshToken != "" {
			c.auth.refreshToken = token.RefreshToken
		}
	}
}

// WithOAuth configures the OAuth application used by [Client.AuthorizeURL],
// [Client.TokenCreate] and [Client.TokenRefresh].
func WithOAuth(clientID, clientSecret, redirectURI string) ClientOption {
	return func(c *Client) {
		c.auth.clientID = clientID
		c.auth.clientSecret = clientSecret
		c.auth.redirectURI = redirectURI
	}
}

// WithAuthorizationCode configures the client to lazily exchange the code for
// a token on the first request.
// If not provided, [Client.TokenCreate] needs to be called explicitly.
func WithAuthorizationCode(code string) ClientOption {
	return func(c *Client) {
		c.auth.code = code
	}
}

// WithRefreshToken sets a refresh token obtained earlier.
func WithRefreshToken(refreshToken string) ClientOption {
	return func(c *Client) {
		c.auth.refreshToken = refreshToken
	}
}

// WithJWTParser configures the parser used to read the expiry of JWT access tokens.
func WithJWTParser(parser *jwt.Parser) ClientOption {
	return func(c *Client) {
		c.auth.parser = parser
	}
}

// WithMaxRetries sets how often a rate limited request is retried.
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// WithConcurrency limits the number of parallel requests of batch helpers like [Client.ShowPeople].
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a NationBuilder API client for the nation with the provided slug.
// The client defaults to https://<slug>.nationbuilder.com/ and applies any
// provided options.
func New(slug string, opts ...ClientOption) *Client {
	nationURL, _ := url.Parse(fmt.Sprintf(URLTemplate, slug))
	httpClient, transportErr := newHTTPClient(newTransport())

	c := &Client{
		baseURL:     nationURL,
		slug:        slug,
		httpClient:  httpClient,
		logger:      zerolog.Nop(),
		maxRetries:  DefaultMaxRetries,
		concurrency: DefaultConcurrency,
		auth: &tokenStore{
			parser: jwt.NewParser(),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.userAgent == "" {
		c.userAgent = userAgent()
	}
	if transportErr != nil && c.httpClient == httpClient {
		c.logger.Warn().Err(transportErr).Msg("http2 unavailable, using HTTP/1.1")
	}
	if c.auth.token != "" && c.auth.expiresAt.IsZero() {
		// Tokens that are not JWTs never expire client side.
		if exp, err := c.auth.jwtExpiry(c.auth.token); err == nil {
			c.auth.expiresAt = exp
		}
	}

	return c
}

// Slug returns the slug of the nation the client talks to.
func (c *Client) Slug() string {
	return c.slug
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// newHTTPClient returns the default HTTP client using transport with HTTP/2 enabled.
// The client is usable over HTTP/1.1 even if the upgrade fails.
func newHTTPClient(transport *http.Transport) (*http.Client, error) {
	err := http2.ConfigureTransport(transport)
	if err != nil {
		err = fmt.Errorf("configure http2: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}, err
}

// version returns the module version of the nationbuilder package.
// It returns "devel" if built without module version information.
func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "devel"
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			if dep.Version == "(devel)" {
				return "devel"
			}

			return dep.Version
		}
	}

	if info.Main.Path == modulePath {
		if info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return "devel+" + setting.Value[:7]
			}
		}
	}

	return "devel"
}

// userAgent returns the default User-Agent string for this package.
func userAgent() string {
	v := version()
	goVersion := runtime.Version()
	os := runtime.GOOS
	arch := runtime.GOARCH
	return fmt.Sprintf("go-nationbuilder/%s (%s; %s/%s)", v, goVersion, os, arch)
}
