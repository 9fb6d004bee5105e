// Package httpclient fetches release artifacts over HTTP with retries and
// transparent content decoding (gzip, deflate, brotli).
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// ErrMaxRetries wraps the last failure once every attempt has been used.
var ErrMaxRetries = errors.New("max retries exceeded")

// Defaults.
const (
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
	DefaultUserAgent      = "dlcut"
	acceptEncodingHeader  = "gzip, deflate, br"
	backoffFactor         = 2
	maxRetryAfterAccepted = 5 * time.Minute
)

// Config holds client settings.
type Config struct {
	// Timeout bounds a whole request including the body. Zero disables it,
	// which release downloads of several hundred megabytes need.
	Timeout time.Duration

	RetryAttempts int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	UserAgent     string
	Logger        *slog.Logger

	// BaseClient replaces the underlying http.Client; Timeout is then ignored.
	BaseClient *http.Client
}

// DefaultConfig returns the settings used for tool installation.
func DefaultConfig() Config {
	return Config{
		RetryAttempts: DefaultRetryAttempts,
		RetryDelay:    DefaultRetryDelay,
		RetryMaxDelay: DefaultRetryMaxDelay,
		UserAgent:     DefaultUserAgent,
		Logger:        slog.Default(),
	}
}

// Client is a retrying HTTP client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a client from cfg, filling unset values with defaults.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = DefaultRetryMaxDelay
	}
	hc := cfg.BaseClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, logger: cfg.Logger.With("component", "httpclient")}
}

// Get performs a GET with retries.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(ctx, req)
}

// Do sends req, retrying transport errors and transient statuses with
// exponential backoff. A Retry-After header on 429 or 503 replaces the
// computed delay. The returned body is already decoded.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncodingHeader)
	}

	logger := c.logger.With(slog.String("method", req.Method), slog.String("url", req.URL.String()))
	delay := c.cfg.RetryDelay
	var lastErr error

	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying request", slog.Int("attempt", attempt), slog.Duration("delay", delay))
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
			delay = min(delay*backoffFactor, c.cfg.RetryMaxDelay)
		}

		start := time.Now()
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			logger.Warn("request failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}

		if retryable(resp.StatusCode) {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if d, ok := retryAfter(resp); ok {
				delay = d
			}
			logger.Warn("transient status", slog.Int("attempt", attempt), slog.Int("status", resp.StatusCode))
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}

		logger.Debug("request completed",
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)),
			slog.Int64("content_length", resp.ContentLength),
		)
		if err := decode(resp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

// decode swaps resp.Body for a decoding reader matching Content-Encoding.
// Unknown encodings are passed through untouched.
func decode(resp *http.Response) error {
	var (
		r   io.Reader
		err error
	)
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		r, err = gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
	case "deflate":
		r = flate.NewReader(resp.Body)
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil
	}
	resp.Body = &decodedBody{Reader: r, body: resp.Body}
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

type decodedBody struct {
	io.Reader
	body io.Closer
}

func (d *decodedBody) Close() error {
	if c, ok := d.Reader.(io.Closer); ok {
		c.Close()
	}
	return d.body.Close()
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads a delta-seconds or HTTP-date Retry-After header.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = time.Until(t)
	} else {
		return 0, false
	}
	if d < 0 || d > maxRetryAfterAccepted {
		return 0, false
	}
	return d, true
}
