// Package hn fetches and parses user profile pages from Hacker News.
//
// Every failure (network, timeout, HTTP status, rate limit, malformed
// markup) collapses into a nil profile for callers; the cause is only
// logged.
package hn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hnskin/internal/types"
)

// DefaultBaseURL is the site profiles are fetched from
const DefaultBaseURL = "https://news.ycombinator.com"

// DefaultTimeout bounds a whole profile fetch, including reading the body
const DefaultTimeout = 5 * time.Second

// rateLimitKey is the bucket shared by all upstream profile fetches
const rateLimitKey = "hn:profile"

var (
	// ErrStatus is returned for non-2xx upstream responses
	ErrStatus = errors.New("unexpected upstream status")
	// ErrRateLimited is returned when the outbound budget is exhausted
	ErrRateLimited = errors.New("upstream rate limit reached")
	// ErrBodyTooLarge is returned when a page exceeds MaxBodyBytes
	ErrBodyTooLarge = errors.New("profile page too large")
)

// Config holds fetcher settings
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxBodyBytes int64

	// RateLimit requests per RateLimitWindow; zero disables limiting
	RateLimit       int
	RateLimitWindow time.Duration
}

// DefaultConfig returns the settings used against the live site
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         DefaultTimeout,
		MaxBodyBytes:    512 * 1024,
		RateLimit:       60,
		RateLimitWindow: time.Minute,
	}
}

// Client fetches profile pages
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    types.RateLimitStore
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter makes every fetch consult the given store first
func WithRateLimiter(store types.RateLimitStore) Option {
	return func(c *Client) { c.limiter = store }
}

// WithLogger sets the logger; the default is slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a profile fetcher. Zero config fields take defaults.
func NewClient(config Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = defaults.RateLimitWindow
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProfileURL returns the page fetched for username
func (c *Client) ProfileURL(username string) string {
	return c.config.BaseURL + "/user?id=" + url.QueryEscape(username)
}

// SubmissionsURL returns the listing of username's stories
func (c *Client) SubmissionsURL(username string) string {
	return c.config.BaseURL + "/submitted?id=" + url.QueryEscape(username)
}

// CommentsURL returns the listing of username's comments
func (c *Client) CommentsURL(username string) string {
	return c.config.BaseURL + "/threads?id=" + url.QueryEscape(username)
}

// Fetch retrieves and parses the profile for username. It returns nil when
// the profile is unavailable for any reason.
func (c *Client) Fetch(ctx context.Context, username string) *types.ProfileRecord {
	start := time.Now()
	record, err := c.FetchProfile(ctx, username)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrMalformed) || errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "profile fetch failed",
			"username", username,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil
	}

	c.logger.Debug("profile fetched",
		"username", username,
		"karma", record.Karma,
		"duration_ms", time.Since(start).Milliseconds())
	return record
}

// FetchProfile is Fetch with the failure cause. Errors wrap ErrStatus,
// ErrRateLimited, ErrBodyTooLarge, ErrMalformed or the transport error.
func (c *Client) FetchProfile(ctx context.Context, username string) (*types.ProfileRecord, error) {
	if username == "" {
		return nil, fmt.Errorf("empty username: %w", ErrMalformed)
	}

	if err := c.reserve(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProfileURL(username), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hnskin/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	// Read one byte past the limit to tell "exactly at limit" from "truncated"
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	record, err := ParseProfile(bytes.NewReader(body), username)
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	record.SubmissionsURL = c.SubmissionsURL(username)
	record.CommentsURL = c.CommentsURL(username)
	return record, nil
}

// reserve takes one slot from the outbound budget. Limiter errors fail open.
func (c *Client) reserve(ctx context.Context) error {
	if c.limiter == nil || c.config.RateLimit <= 0 {
		return nil
	}
	allowed, _, err := c.limiter.Check(ctx, rateLimitKey, c.config.RateLimit, c.config.RateLimitWindow)
	if err != nil {
		c.logger.Warn("rate limit check failed, allowing fetch", "error", err)
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	if err := c.limiter.Increment(ctx, rateLimitKey, c.config.RateLimitWindow); err != nil {
		c.logger.Warn("rate limit increment failed", "error", err)
	}
	return nil
}
