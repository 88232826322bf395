// Package content generates, refines, and tracks batches of social-media posts.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/PostPipe/internal/prompt"
)

// Temperature is the sampling temperature used for every generation call.
const Temperature = 0.7

var (
	// ErrEmptyResponse is returned when the backend answers with no text.
	ErrEmptyResponse = errors.New("empty response from backend")
	// ErrNoFetcher is returned for web prompts when the backend cannot
	// retrieve pages itself and no Fetcher is configured.
	ErrNoFetcher = errors.New("backend has no retrieval support and no fetcher is configured")
)

// Backend is a text-generation service.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// RetrievalBackend is a Backend that can read web content referenced in a prompt.
type RetrievalBackend interface {
	Backend
	CompleteWithRetrieval(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Fetcher downloads a page and returns its readable text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (title, text string, err error)
}

// GenerationError reports a failed backend round-trip.
type GenerationError struct {
	Op  string // "complete", "retrieve", or "fetch"
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ClientOpts holds configuration for a GenerationClient.
type ClientOpts struct {
	Fetcher Fetcher
}

// ClientOption configures a GenerationClient.
type ClientOption func(*ClientOpts)

// WithFetcher sets the page fetcher used for web prompts when the backend
// has no retrieval support of its own.
func WithFetcher(f Fetcher) ClientOption {
	return func(o *ClientOpts) {
		o.Fetcher = f
	}
}

// GenerationClient sends prompts to a Backend in text or web mode.
type GenerationClient struct {
	backend Backend
	fetcher Fetcher
}

// NewGenerationClient creates a GenerationClient over backend.
func NewGenerationClient(backend Backend, opts ...ClientOption) *GenerationClient {
	var cfg ClientOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GenerationClient{backend: backend, fetcher: cfg.Fetcher}
}

// Generate runs p against the backend and returns the raw response text.
// Every failure is a *GenerationError.
func (c *GenerationClient) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	var (
		op  string
		out string
		err error
	)
	if p.Mode == prompt.ModeWeb {
		op, out, err = c.generateWeb(ctx, p)
	} else {
		op = "complete"
		out, err = c.backend.Complete(ctx, p.System, p.User, Temperature, p.MaxTokens)
	}
	if err != nil {
		slog.Error("GenerationClient.Generate: backend call failed", "op", op, "mode", p.Mode.String(), "error", err)
		return "", &GenerationError{Op: op, Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		slog.Warn("GenerationClient.Generate: empty response", "op", op, "mode", p.Mode.String())
		return "", &GenerationError{Op: op, Err: ErrEmptyResponse}
	}
	slog.Debug("GenerationClient.Generate: response received", "op", op, "mode", p.Mode.String(), "length", len(out))
	return out, nil
}

// generateWeb lets a retrieval-capable backend read the URL itself, or
// fetches the page and inlines its text into the user prompt.
func (c *GenerationClient) generateWeb(ctx context.Context, p prompt.Prompt) (string, string, error) {
	if rb, ok := c.backend.(RetrievalBackend); ok {
		out, err := rb.CompleteWithRetrieval(ctx, p.System+"\n\n"+p.User, Temperature)
		return "retrieve", out, err
	}
	if c.fetcher == nil {
		return "fetch", "", ErrNoFetcher
	}

	_, text, err := c.fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return "fetch", "", err
	}
	user := p.User + "\n\nHere's the article text retrieved from " + p.URL + ":\n\n" + prompt.TruncateArticle(text)
	out, err := c.backend.Complete(ctx, p.System, user, Temperature, p.MaxTokens)
	return "complete", out, err
}
