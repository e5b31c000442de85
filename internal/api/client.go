package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/costlens/costlens-cli/internal/session"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxErrorBodySize bounds how much of a failed response is read while
	// looking for the detail message.
	maxErrorBodySize = 64 * 1024
)

// Client is the cost-tracking API client.
//
// Every request reads the bearer token from Session. A 401 from any endpoint
// clears Session; no other code path in the client does.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Session   *session.Store
	Logger    zerolog.Logger
}

// New creates a client for baseURL backed by store.
func New(baseURL string, store *session.Store) *Client {
	if store == nil {
		store = session.New()
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
		Session: store,
		Logger:  zerolog.Nop(),
	}
}

// url joins the base URL and an endpoint path.
func (c *Client) url(path string) string {
	if path != "" && path[0] != '/' {
		path = "/" + path
	}
	return c.BaseURL + path
}

// newRequest composes a request: JSON headers, optional bearer token, then
// caller headers. Caller headers cannot replace Authorization.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, extra http.Header) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for key, values := range extra {
		if strings.EqualFold(key, "Authorization") {
			continue
		}
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if token := c.Session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes req and classifies the response. On success the caller owns
// resp.Body; on failure the body is already closed.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := c.Logger.With().Str("method", req.Method).Str("path", req.URL.Path).Logger()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		logger.Debug().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return nil, &TransportUnavailableError{Err: err}
	}
	logger.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request complete")

	if err := c.classify(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// classify turns a non-2xx response into a typed error. It is the only place
// that reacts to 401 by clearing the session.
func (c *Client) classify(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		if c.Session.Clear() {
			c.Logger.Info().Msg("session expired, cleared stored credentials")
		}
		return &SessionExpiredError{}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &RequestFailedError{
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(body),
		RequestID:  requestIDFromHeader(resp.Header),
	}
}

// do performs a JSON request and decodes a 2xx body into result.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	req, err := c.newRequest(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportUnavailableError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unexpected API response format (JSON decode failed): %w", err)
	}
	return nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Download is a successful binary response. The caller must Close it.
type Download struct {
	Body   io.ReadCloser
	Header http.Header
}

// Close releases the response body.
func (d *Download) Close() error {
	if d == nil || d.Body == nil {
		return nil
	}
	return d.Body.Close()
}

// Download performs an authenticated GET for a non-JSON payload. Auth travels
// in the Authorization header exactly as for JSON requests.
func (c *Client) Download(ctx context.Context, path string) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, http.Header{"Accept": {"*/*"}})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return &Download{Body: resp.Body, Header: resp.Header}, nil
}

// RequireSession fails fast when no token is stored, before any request.
func (c *Client) RequireSession() error {
	if !c.Session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	return nil
}

func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return ""
	}
	if strings.TrimSpace(detail) == "" {
		return ""
	}
	return detail
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	return header.Get("X-Request-Id")
}

// isContextError reports whether err came from ctx cancellation rather than
// the network.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
