package nationbuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// apiRoot is the path prefix of all v1 endpoints.
const apiRoot = "/api/v1/"

// maxErrorBody limits how much of an error response is read.
const maxErrorBody = 1 << 20

// apiPath joins escaped path segments below the API root.
// Dot segments are percent-encoded so they cannot walk up the path.
func apiPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		switch s {
		case ".", "..":
			escaped[i] = strings.Repeat("%2E", len(s))
		default:
			escaped[i] = url.PathEscape(s)
		}
	}

	return apiRoot + strings.Join(escaped, "/")
}

// newRequest creates a new HTTP request.
// path must already be escaped, see [apiPath].
func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	params url.Values,
	body any,
) (*http.Request, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}

	u := c.baseURL.ResolveReference(rel)
	u.RawQuery = params.Encode()

	return c.newURLRequest(ctx, method, u, body)
}

// newCursorRequest creates a GET request for a pagination cursor returned by the API.
// The cursor keeps its own query string.
func (c *Client) newCursorRequest(ctx context.Context, cursor string) (*http.Request, error) {
	rel, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("parse cursor %q: %w", cursor, err)
	}

	u := c.baseURL.ResolveReference(rel)
	if u.Host != c.baseURL.Host || u.Scheme != c.baseURL.Scheme {
		return nil, fmt.Errorf("cursor %q points to foreign origin %s://%s", cursor, u.Scheme, u.Host)
	}

	return c.newURLRequest(ctx, http.MethodGet, u, nil)
}

func (c *Client) newURLRequest(
	ctx context.Context,
	method string,
	u *url.URL,
	body any,
) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// doJSON executes the request and decodes the JSON response into v.
// If expect is not empty, the response status must be one of its values.
func (c *Client) doJSON(req *http.Request, v any, expect ...int) (*http.Response, error) {
	resp, err := c.do(req)
	if err != nil {
		return resp, err
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}

	if len(expect) > 0 && !slices.Contains(expect, resp.StatusCode) {
		return resp, fmt.Errorf(
			"%s: %d, %w",
			http.StatusText(resp.StatusCode),
			resp.StatusCode,
			ErrStatus,
		)
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return resp, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}

	return resp, nil
}

// do executes the request with automatic token refresh and rate limit retries.
// A request rejected with 401 is retried once after refreshing the token.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	reauthorized := false

	for attempt := 0; ; attempt++ {
		if err := c.wait(req.Context()); err != nil {
			return nil, err
		}

		token, err := c.authorize(req)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}

			return nil, err
		}

		c.logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("nationbuilder request")

		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}

			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("too many requests after %d retries: %w", attempt, ErrRateLimit)
			}

			err := c.handleRetryAfter(resp.Header.Get("X-Ratelimit-Reset"))
			if err != nil {
				return nil, fmt.Errorf("too many requests: %w, %w", err, ErrRateLimit)
			}

			if err := c.rewindBody(req); err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w, %w", err, ErrRateLimit)
			}

			c.retryAfterMU.Lock()
			until := c.retryAfter
			c.retryAfterMU.Unlock()
			c.logger.Warn().
				Str("path", req.URL.Path).
				Time("until", until).
				Int("attempt", attempt+1).
				Msg("rate limited, waiting")

			continue
		}

		if resp.StatusCode == http.StatusUnauthorized && !reauthorized {
			reauthorized = true

			ok, err := c.reauthorize(req.Context(), token)
			if err != nil {
				_ = resp.Body.Close()
				return nil, fmt.Errorf("refresh rejected token: %w", err)
			}
			if ok {
				_ = resp.Body.Close()
				if err := c.rewindBody(req); err != nil {
					return nil, err
				}

				c.logger.Debug().Str("path", req.URL.Path).Msg("access token rejected, retrying with refreshed token")
				attempt--
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp, remoteError(resp)
		}

		return resp, nil
	}
}

// authorize sets the Authorization header, refreshing the token first if needed.
// It returns the token sent.
func (c *Client) authorize(req *http.Request) (string, error) {
	if err := c.TokenRefresh(req.Context()); err != nil {
		return "", err
	}

	c.auth.Lock()
	token := c.auth.token
	c.auth.Unlock()

	req.Header.Set("Authorization", "Bearer "+token)
	return token, nil
}

// remoteError reads and closes the body of a failed response.
func remoteError(resp *http.Response) error {
	rerr := &RemoteError{StatusCode: resp.StatusCode}
	if resp.Body == nil {
		return rerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return rerr
	}

	if json.Unmarshal(body, rerr) != nil || (rerr.Code == "" && rerr.Message == "") {
		rerr.Message = strings.TrimSpace(string(body))
	}
	rerr.StatusCode = resp.StatusCode

	return rerr
}

// wait checks if the client is currently rate-limited.
// If so, it blocks until the reset time or until the context is canceled.
func (c *Client) wait(ctx context.Context) error {
	c.retryAfterMU.Lock()
	waitUntil := c.retryAfter
	c.retryAfterMU.Unlock()

	if time.Now().After(waitUntil) {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Until(waitUntil)):
		return nil
	}
}

// handleRetryAfter updates the client's retry-after timestamp based on the
// value in the X-Ratelimit-Reset header.
func (c *Client) handleRetryAfter(header string) error {
	if header == "" {
		return fmt.Errorf("missing X-Ratelimit-Reset header")
	}

	ts, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid X-Ratelimit-Reset header %q: %w", header, err)
	}

	t := time.Unix(ts, 0)

	c.retryAfterMU.Lock()
	defer c.retryAfterMU.Unlock()

	if t.After(c.retryAfter) {
		c.retryAfter = t
	}

	return nil
}

// rewindBody attempts to reset the request body for a retry.
func (c *Client) rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	// GetBody is nil for io.Pipe or raw io.Reader inputs.
	if req.GetBody == nil {
		return fmt.Errorf("cannot rewind body: GetBody is nil")
	}

	freshBody, err := req.GetBody()
	if err != nil {
		return err
	}

	req.Body = freshBody
	return nil
}
