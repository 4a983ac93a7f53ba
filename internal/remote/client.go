// Package remote talks to the ULLAS quiz API. Requests are authenticated
// with OAuth2 client credentials when a client id is configured.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// ErrUnreachable wraps transport failures and undecodable responses
var ErrUnreachable = errors.New("remote API unreachable")

// StatusError is returned for non-2xx responses and for envelopes with
// success=false
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote API returned %d", e.Code)
	}
	return fmt.Sprintf("remote API returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Envelope is the API's response wrapper
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config configures a Client
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// Client is a small JSON client for the quiz API
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New creates a client. Without a client id requests are unauthenticated.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote API url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.ClientID != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = base.String() + "/oauth/token"
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		httpClient = cc.Client(ctx)
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{base: base, http: httpClient, logger: logger.With("component", "remote")}, nil
}

// NewWithHTTPClient creates a client around an existing http.Client
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *slog.Logger) (*Client, error) {
	c, err := New(context.Background(), Config{BaseURL: baseURL}, logger)
	if err != nil {
		return nil, err
	}
	c.http = hc
	return c, nil
}

// GetJSON fetches path and decodes the envelope's data into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// PostJSON sends body as JSON to path and decodes the envelope's data into
// out, which may be nil
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(path).String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnreachable, err)
	}
	c.logger.Debug("remote call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode envelope: %w", ErrUnreachable, decodeErr)
	}
	if !env.Success {
		return &StatusError{Code: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %w", ErrUnreachable, err)
	}
	return nil
}
