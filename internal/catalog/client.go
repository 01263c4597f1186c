// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/recommend"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	breakerName    = "tmdb-api"

	// maxErrorBodySize limits how much of an error response is kept for diagnostics.
	maxErrorBodySize = 64 * 1024
)

// Endpoint labels used for metrics and cache keys.
const (
	endpointDetails  = "details"
	endpointSimilar  = "similar"
	endpointTrending = "trending"
	endpointPopular  = "popular"
	endpointSearch   = "search"
)

// Client is a rate-limited, retrying, circuit-broken TMDB client.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	apiKey      string
	language    string

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	responses  cache.Store
	ttls       map[string]time.Duration

	maxRetries int
	retryBase  time.Duration

	// useAPIKey flips once the bearer token has been rejected.
	useAPIKey atomic.Bool

	logger zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithResponseCache replaces the in-process response cache.
func WithResponseCache(s cache.Store) Option {
	return func(c *Client) { c.responses = s }
}

// NewClient creates a catalog client from configuration.
func NewClient(cfg config.CatalogConfig, opts ...Option) (*Client, error) {
	if cfg.AccessToken == "" && cfg.APIKey == "" {
		return nil, errors.New("catalog: access token or api key is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	retryBase := cfg.RetryBaseDelay
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	maxEntries := cfg.CacheMaxLen
	if maxEntries <= 0 {
		maxEntries = 2048
	}

	c := &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		apiKey:      cfg.APIKey,
		language:    cfg.Language,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     newBreaker(breakerName),
		responses:   cache.NewLRU(maxEntries, 30*time.Minute),
		ttls: map[string]time.Duration{
			endpointDetails:  orDuration(cfg.DetailsTTL, 30*time.Minute),
			endpointSimilar:  orDuration(cfg.SimilarTTL, 60*time.Minute),
			endpointTrending: orDuration(cfg.ListTTL, 30*time.Minute),
			endpointPopular:  orDuration(cfg.ListTTL, 30*time.Minute),
			endpointSearch:   orDuration(cfg.SearchTTL, 5*time.Minute),
		},
		maxRetries: max(cfg.MaxRetries, 0),
		retryBase:  retryBase,
		logger:     logging.WithComponent("catalog"),
	}
	c.useAPIKey.Store(cfg.AccessToken == "")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

// get returns the body of a GET request, served from the response cache when
// possible and otherwise executed through the circuit breaker.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	key := endpoint + ":" + path + "?" + query.Encode()
	if c.responses != nil {
		if body, ok, err := c.responses.Get(ctx, key); err == nil && ok {
			metrics.RecordCatalogRequest(endpoint, "cached", 0)
			return body, nil
		}
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doWithRetry(ctx, endpoint, path, query)
	})
	if err != nil {
		metrics.RecordCatalogRequest(endpoint, "error", time.Since(start))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			return nil, fmt.Errorf("catalog %s: %v: %w", endpoint, err, recommend.ErrUpstream)
		}
		if !errors.Is(err, recommend.ErrNotFound) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	metrics.RecordCatalogRequest(endpoint, "ok", time.Since(start))

	if c.responses != nil {
		if err := c.responses.Set(ctx, key, body, c.ttls[endpoint]); err != nil {
			c.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("Response cache write failed")
		}
	}
	return body, nil
}

// doWithRetry executes one logical request:
//   - waits on the outbound limiter before every attempt
//   - retries 429, 5xx and transport errors up to maxRetries times with
//     delays of base, 2*base, 4*base...; Retry-After (seconds) wins
//   - on a 401 with the bearer token, switches to the api_key parameter
//     once and retries immediately
func (c *Client) doWithRetry(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	authFallbackUsed := false
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog rate limiter: %w", err)
		}

		req, err := c.newRequest(ctx, path, query)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt < c.maxRetries {
				metrics.CatalogRetries.WithLabelValues("timeout").Inc()
				if err := c.wait(ctx, c.backoff(attempt, "")); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("catalog %s: %v: %w", endpoint, err, recommend.ErrUpstream)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s response: %w", endpoint, err)
			}
			return body, nil

		case resp.StatusCode == http.StatusUnauthorized && !c.useAPIKey.Load() && c.apiKey != "" && !authFallbackUsed:
			drain(resp)
			authFallbackUsed = true
			c.useAPIKey.Store(true)
			metrics.CatalogRetries.WithLabelValues("auth_fallback").Inc()
			c.logger.Warn().Str("endpoint", endpoint).Msg("Bearer token rejected, falling back to api key")
			attempt--
			continue

		case resp.StatusCode == http.StatusNotFound:
			drain(resp)
			return nil, fmt.Errorf("catalog %s %s: %w", endpoint, path, recommend.ErrNotFound)

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			retryAfter := resp.Header.Get("Retry-After")
			body := readBodyForError(resp.Body)
			resp.Body.Close()
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("catalog %s: status %d after %d retries: %s: %w",
					endpoint, resp.StatusCode, c.maxRetries, body, recommend.ErrUpstream)
			}
			reason := "server_error"
			if resp.StatusCode == http.StatusTooManyRequests {
				reason = "rate_limited"
			}
			metrics.CatalogRetries.WithLabelValues(reason).Inc()
			delay := c.backoff(attempt, retryAfter)
			c.logger.Warn().Str("endpoint", endpoint).Int("status", resp.StatusCode).
				Int("attempt", attempt+1).Dur("retry_delay", delay).Msg("Catalog request failed, retrying")
			if err := c.wait(ctx, delay); err != nil {
				return nil, err
			}

		default:
			body := readBodyForError(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("catalog %s: unexpected status %d: %s: %w",
				endpoint, resp.StatusCode, body, recommend.ErrUpstream)
		}
	}
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	if c.language != "" && q.Get("language") == "" {
		q.Set("language", c.language)
	}
	if c.useAPIKey.Load() {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	if !c.useAPIKey.Load() {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

func (c *Client) backoff(attempt int, retryAfter string) time.Duration {
	delay := c.retryBase * (1 << attempt)
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}
	return delay
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
}

// readBodyForError reads at most 64KB of a response body for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
