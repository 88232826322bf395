// Package fetch downloads web pages and extracts their readable article text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Fetch defaults
const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxBodyBytes = 5 << 20
	DefaultUserAgent    = "PostPipe/1.0 (+article-to-posts)"
)

// ErrNoReadableContent is returned when a page has no extractable article text.
var ErrNoReadableContent = errors.New("no readable content")

// Opts holds configuration for a Fetcher.
type Opts struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Option configures a Fetcher.
type Option func(*Opts)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.Client = c
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// WithMaxBodyBytes limits how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(o *Opts) {
		o.MaxBodyBytes = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *Opts) {
		o.UserAgent = ua
	}
}

// Fetcher retrieves pages over HTTP and extracts their main text.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	cfg := Opts{
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
		UserAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		client:       client,
		maxBodyBytes: cfg.MaxBodyBytes,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch downloads rawURL and returns the article title and readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (title, text string, err error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	slog.Debug("Fetcher.Fetch: fetching page", "url", rawURL)
	resp, err := f.client.Do(req)
	if err != nil {
		slog.Error("Fetcher.Fetch: request failed", "url", rawURL, "error", err)
		return "", "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Fetcher.Fetch: unexpected status", "url", rawURL, "status", resp.StatusCode)
		return "", "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, f.maxBodyBytes), pageURL)
	if err != nil {
		return "", "", fmt.Errorf("extract content from %s: %w", rawURL, err)
	}

	text = strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", "", fmt.Errorf("%s: %w", rawURL, ErrNoReadableContent)
	}
	slog.Debug("Fetcher.Fetch: extracted article", "url", rawURL, "title", article.Title, "length", len(text))
	return strings.TrimSpace(article.Title), text, nil
}
