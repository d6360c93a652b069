package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var ErrClosed = errors.New("client closed")

// HTTPError carries status and body of a non-2xx collaborator response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 512))
}

// Message returns the collaborator's own error message when the body carries one.
func (e *HTTPError) Message() string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil {
		for _, m := range []string{payload.Message, payload.Error, payload.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return http.StatusText(e.StatusCode)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

func IsStatus(err error, code int) bool {
	return StatusOf(err) == code
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig

	// OnUnauthorized runs after the collaborator answered 401. It must not block.
	OnUnauthorized func()
}

// Client is the shared base of every collaborator client. It holds the bearer token
// pushed by the session's credential holder.
type Client struct {
	name           string
	baseURL        *url.URL
	http           *http.Client
	retry          RetryConfig
	logger         *slog.Logger
	onUnauthorized func()

	mu     sync.RWMutex
	token  string
	closed bool
}

func New(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q for %s client", cfg.BaseURL, cfg.Name)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Client{
		name:           cfg.Name,
		baseURL:        base,
		http:           httpClient,
		retry:          retry,
		logger:         logger.With("client", cfg.Name),
		onUnauthorized: cfg.OnUnauthorized,
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

// SetAccessToken replaces the bearer token. An empty token removes it.
func (c *Client) SetAccessToken(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed && token != "" {
		return fmt.Errorf("%s: %w", c.name, ErrClosed)
	}
	c.token = token
	return nil
}

func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close drops the token and refuses new ones.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.token = ""
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String()
}

// Do sends one request with the current bearer token. GET and HEAD are retried on
// transient failures; other methods are sent once.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, header http.Header) ([]byte, error) {
	target := c.resolve(path)
	build := func(ctx context.Context) (*http.Request, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}
		if token := c.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}

	cfg := c.retry
	if method != http.MethodGet && method != http.MethodHead {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	resp, data, err := doWithRetry(ctx, c.http, build, cfg)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.logger.Debug("collaborator request",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds())
	if status == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return data, err
}

// DoJSON encodes in (when not nil) as the request body and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var (
		body   []byte
		header = http.Header{}
	)
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
		body = encoded
		header.Set("Content-Type", "application/json")
	}

	data, err := c.Do(ctx, method, path, body, header)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w body=%s", c.name, err, snippet(data, 512))
	}
	return nil
}

func isRetryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe") || strings.Contains(msg, "eof")
}
