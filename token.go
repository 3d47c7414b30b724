package nationbuilder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin is how long before expiry a token gets refreshed.
const refreshMargin = 2 * time.Minute

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"
)

type tokenStore struct {
	sync.Mutex

	token        string
	refreshToken string
	code         string
	expiresAt    time.Time

	clientID     string
	clientSecret string
	redirectURI  string

	parser *jwt.Parser
}

// Token is the OAuth state of a client.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// CreateTokenRequest is sent to the token endpoint for both grant types.
type CreateTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CreateTokenResponse is returned by the token endpoint.
type CreateTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	// CreatedAt is a unix timestamp.
	CreatedAt int64 `json:"created_at"`
	// ExpiresIn is the lifetime in seconds, 0 for tokens that don't expire.
	ExpiresIn int64 `json:"expires_in"`
}

// TokenError is returned when the token endpoint rejects a request.
type TokenError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("oauth %d: %s", e.StatusCode, e.Code)
	}

	return fmt.Sprintf("oauth %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Unwrap allows errors.Is(err, ErrStatus).
func (e *TokenError) Unwrap() error {
	return ErrStatus
}

// AuthorizeURL returns the URL a nation admin visits to grant access to the OAuth application.
func (c *Client) AuthorizeURL(state string) (string, error) {
	c.auth.Lock()
	defer c.auth.Unlock()

	if c.auth.clientID == "" {
		return "", ErrNoOAuthClient
	}

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.auth.clientID)
	params.Set("redirect_uri", c.auth.redirectURI)
	if state != "" {
		params.Set("state", state)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: authorizePath})
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// Token returns the current token state, e.g. to persist it between runs.
func (c *Client) Token() Token {
	c.auth.Lock()
	defer c.auth.Unlock()

	return Token{
		AccessToken:  c.auth.token,
		RefreshToken: c.auth.refreshToken,
		ExpiresAt:    c.auth.expiresAt,
	}
}

// TokenCreate exchanges an authorization code for an access token.
func (c *Client) TokenCreate(ctx context.Context, code string) error {
	c.auth.Lock()
	defer c.auth.Unlock()

	return c.createToken(ctx, code)
}

// createToken exchanges code for a token. The caller must hold the lock of c.auth.
func (c *Client) createToken(ctx context.Context, code string) error {
	if code == "" {
		return ErrNoAccessToken
	}
	if c.auth.clientID == "" {
		return ErrNoOAuthClient
	}

	resp, err := c.requestToken(ctx, CreateTokenRequest{
		ClientID:     c.auth.clientID,
		ClientSecret: c.auth.clientSecret,
		RedirectURI:  c.auth.redirectURI,
		GrantType:    "authorization_code",
		Code:         code,
	})
	if err != nil {
		return err
	}

	if err := c.auth.updateToken(resp, time.Now()); err != nil {
		return err
	}
	c.auth.code = ""

	return nil
}

// TokenRefresh refreshes the access token if necessary.
// Without an access token it exchanges the configured authorization code or,
// failing that, uses the refresh token.
func (c *Client) TokenRefresh(ctx context.Context) error {
	c.auth.Lock()
	defer c.auth.Unlock()

	if c.auth.token == "" {
		switch {
		case c.auth.code != "":
			return c.createToken(ctx, c.auth.code)
		case c.auth.refreshToken != "":
			return c.refreshGrant(ctx)
		default:
			return ErrNoAccessToken
		}
	}

	if !c.auth.shouldRefresh(time.Now()) {
		return nil
	}

	return c.refreshGrant(ctx)
}

// reauthorize replaces the access token the API rejected with a refreshed one.
// It reports false if the token cannot be refreshed.
func (c *Client) reauthorize(ctx context.Context, rejected string) (bool, error) {
	c.auth.Lock()
	defer c.auth.Unlock()

	if c.auth.token != rejected {
		// refreshed by a concurrent request
		return true, nil
	}
	if c.auth.refreshToken == "" || c.auth.clientID == "" {
		return false, nil
	}

	if err := c.refreshGrant(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// refreshGrant exchanges the refresh token for a new token.
// The caller must hold the lock of c.auth.
func (c *Client) refreshGrant(ctx context.Context) error {
	if c.auth.refreshToken == "" {
		return ErrNoRefreshToken
	}
	if c.auth.clientID == "" {
		return ErrNoOAuthClient
	}

	resp, err := c.requestToken(ctx, CreateTokenRequest{
		ClientID:     c.auth.clientID,
		ClientSecret: c.auth.clientSecret,
		GrantType:    "refresh_token",
		RefreshToken: c.auth.refreshToken,
	})
	if err != nil {
		return err
	}

	return c.auth.updateToken(resp, time.Now())
}

// requestToken posts to the token endpoint. It bypasses [Client.do] since
// that would try to authorize the request itself.
func (c *Client) requestToken(ctx context.Context, body CreateTokenRequest) (CreateTokenResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, tokenPath, nil, body)
	if err != nil {
		return CreateTokenResponse{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CreateTokenResponse{}, err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TokenError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(data, terr) != nil || terr.Code == "" {
			terr.Code = http.StatusText(resp.StatusCode)
		}
		terr.StatusCode = resp.StatusCode

		return CreateTokenResponse{}, terr
	}

	var tokenResp CreateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return CreateTokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}

	c.logger.Debug().
		Str("grant_type", body.GrantType).
		Int64("expires_in", tokenResp.ExpiresIn).
		Msg("obtained access token")

	return tokenResp, nil
}

// shouldRefresh checks if the token needs refreshing.
// Tokens without a known expiry are never refreshed.
func (ts *tokenStore) shouldRefresh(now time.Time) bool {
	if ts == nil {
		return true
	}

	if ts.token == "" {
		return true
	}
	if ts.expiresAt.IsZero() {
		return false
	}

	return now.Add(refreshMargin).After(ts.expiresAt)
}

// updateToken validates and updates the token store.
func (ts *tokenStore) updateToken(resp CreateTokenResponse, now time.Time) error {
	if resp.AccessToken == "" {
		return fmt.Errorf("token response doesn't contain an access token")
	}

	ts.token = resp.AccessToken
	if resp.RefreshToken != "" {
		ts.refreshToken = resp.RefreshToken
	}
	ts.expiresAt = ts.expiry(resp, now)

	return nil
}

// expiry determines when the token of resp expires. It prefers expires_in and
// falls back to the exp claim of JWT access tokens. The zero time means the
// token does not expire.
func (ts *tokenStore) expiry(resp CreateTokenResponse, now time.Time) time.Time {
	if resp.ExpiresIn > 0 {
		issued := now
		if resp.CreatedAt > 0 {
			issued = time.Unix(resp.CreatedAt, 0)
		}

		return issued.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	exp, err := ts.jwtExpiry(resp.AccessToken)
	if err != nil {
		return time.Time{}
	}

	return exp
}

// jwtExpiry reads the exp claim of a JWT without verifying its signature.
// The claim only schedules refreshes.
func (ts *tokenStore) jwtExpiry(tokenString string) (time.Time, error) {
	parser := ts.parser
	if parser == nil {
		parser = jwt.NewParser()
	}

	token, _, err := parser.ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse token: %w", err)
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token doesn't contain an expiry")
	}

	return exp.Time, nil
}
