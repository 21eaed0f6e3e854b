// Package mektep implements the Mektep platform API client.
package mektep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Mektep API client.
type ClientConfig struct {
	// BaseURL is the portal base URL, without a trailing slash.
	BaseURL string

	// Timeout is the HTTP request timeout. Requests cannot be cancelled once
	// issued beyond this and the caller's context.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables request-level debug logging.
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Mektep platform API client. All methods issue a single
// request and report transport, status, and decode failures as errors; the
// caller decides which of those are fatal.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Mektep API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// Login posts credentials as an HTML form and returns the token and display
// name the platform grants. The login endpoint takes no bearer token.
func (c *Client) Login(ctx context.Context, username, password, server string) (*LoginResponseDTO, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	if server != "" {
		form.Set("server", server)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var out LoginResponseDTO
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}
	if !out.Success || out.Token == "" {
		return nil, &APIError{Status: resp.StatusCode, Message: out.Error}
	}

	return &out, nil
}

// ValidateToken checks whether a token is still accepted. Both a 200 with a
// truthy success field and a 401 are accepted responses, not faults: the
// boolean carries the verdict and the error is nil. Anything else (transport
// failure, unexpected status, malformed payload) is reported as an error.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	resp, body, err := c.get(ctx, token, "/validate-token", nil)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out ValidateResponseDTO
		if err := json.Unmarshal(body, &out); err != nil {
			return false, fmt.Errorf("parse validate response: %w", err)
		}
		return out.Success, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, &APIError{Status: resp.StatusCode}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMETABLE
// ══════════════════════════════════════════════════════════════════════════════

// Periods fetches the period table as the platform serves it: definitions
// keyed by period id.
func (c *Client) Periods(ctx context.Context, token string) (map[string]PeriodDTO, error) {
	var out map[string]PeriodDTO
	if err := c.getJSON(ctx, token, "/api/periods", nil, &out); err != nil {
		return nil, fmt.Errorf("get periods: %w", err)
	}
	return out, nil
}

// Timetable fetches raw lessons for a window. The cache always requests a
// single day, with from and to equal. Timestamps go over the wire as ISO8601
// UTC.
func (c *Client) Timetable(ctx context.Context, token string, from, to time.Time) (*TimetableDayDTO, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))

	var out TimetableDayDTO
	if err := c.getJSON(ctx, token, "/api/timetable", query, &out); err != nil {
		return nil, fmt.Errorf("get timetable: %w", err)
	}
	return &out, nil
}

// TimetableRecent fetches the platform's multi-day lesson window keyed by
// ISO date.
func (c *Client) TimetableRecent(ctx context.Context, token string) (RecentTimetableDTO, error) {
	var out RecentTimetableDTO
	if err := c.getJSON(ctx, token, "/api/timetable/recent", nil, &out); err != nil {
		return nil, fmt.Errorf("get recent timetable: %w", err)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMELINE
// ══════════════════════════════════════════════════════════════════════════════

// TimelineRecent fetches the recent-activity bundle: homeworks and items
// together.
func (c *Client) TimelineRecent(ctx context.Context, token string) (*TimelineBundleDTO, error) {
	var out TimelineBundleDTO
	if err := c.getJSON(ctx, token, "/api/timeline/recent", nil, &out); err != nil {
		return nil, fmt.Errorf("get recent timeline: %w", err)
	}
	return &out, nil
}

// Timeline fetches older homeworks and items in an explicit window, used for
// backward pagination.
func (c *Client) Timeline(ctx context.Context, token string, from, to time.Time) (*TimelineBundleDTO, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))

	var out TimelineBundleDTO
	if err := c.getJSON(ctx, token, "/api/timeline", query, &out); err != nil {
		return nil, fmt.Errorf("get timeline window: %w", err)
	}
	return &out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// get performs a bearer-authenticated GET and returns the raw response and
// body. The caller owns status-code interpretation.
func (c *Client) get(ctx context.Context, token, path string, query url.Values) (*http.Response, []byte, error) {
	fullURL := c.config.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.config.Debug {
		c.logger.Debug("mektep api request", "method", http.MethodGet, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	return resp, body, nil
}

// getJSON performs a bearer-authenticated GET expecting a 200 with a JSON
// body decoded into result.
func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, result any) error {
	resp, body, err := c.get(ctx, token, path, query)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
