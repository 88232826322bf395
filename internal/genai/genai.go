// Package genai provides text-generation backends over the OpenAI and Gemini APIs.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the OpenAI chat model used when none is configured.
const DefaultModel = openai.ChatModelGPT4Turbo

var (
	// ErrNoChoicesReturned is returned when the API answers without any choices.
	ErrNoChoicesReturned = errors.New("no choices returned")
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("API key not set")
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter adapts the SDK completion service to chatService.
type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the OpenAI client.
type Opts struct {
	APIKey    string
	Model     string
	DebugMode bool
	StateDir  string
}

// Option configures the OpenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key. OPENAI_API_KEY is used when unset.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithDebugMode enables writing request/response pairs under StateDir/debug.
func WithDebugMode(enabled bool) Option {
	return func(o *Opts) {
		o.DebugMode = enabled
	}
}

// WithStateDir sets the directory debug logs are written under.
func WithStateDir(dir string) Option {
	return func(o *Opts) {
		o.StateDir = dir
	}
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat      chatService
	model     string
	debugMode bool
	stateDir  string
}

// NewClient creates an OpenAI client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY: %w", ErrMissingAPIKey)
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: OpenAI client created", "model", cfg.Model, "debugMode", cfg.DebugMode)
	return &Client{
		chat:      completionsAdapter{svc: &cli.Chat.Completions},
		model:     cfg.Model,
		debugMode: cfg.DebugMode,
		stateDir:  cfg.StateDir,
	}, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "openai:" + c.model
}

// Complete generates a response with an explicit temperature and token ceiling.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	return c.complete(ctx, "Complete", systemPrompt, userPrompt, temperature, maxTokens)
}

func (c *Client) complete(ctx context.Context, method, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	slog.Debug("Client.complete: sending request", "method", method, "model", c.model, "maxTokens", maxTokens, "systemLength", len(systemPrompt), "userLength", len(userPrompt))
	resp, err := c.chat.Create(ctx, params)
	if c.debugMode {
		c.writeDebug(method, params, resp, err)
	}
	if err != nil {
		slog.Error("Client.complete: chat completion failed", "method", method, "model", c.model, "error", err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Client.complete: no choices returned", "method", method, "model", c.model)
		return "", ErrNoChoicesReturned
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("Client.complete: response received", "method", method, "length", len(content), "finishReason", resp.Choices[0].FinishReason)
	return strings.TrimSpace(content), nil
}

func (c *Client) writeDebug(method string, params openai.ChatCompletionNewParams, resp openai.ChatCompletion, callErr error) {
	var response interface{} = resp
	if callErr != nil {
		response = map[string]string{"error": callErr.Error()}
	}
	if err := writeDebugLog(c.stateDir, debugEntry{
		Method:   method,
		Model:    c.model,
		Params:   params,
		Response: response,
	}); err != nil {
		slog.Warn("Client.writeDebug: failed to write debug log", "method", method, "error", err)
	}
}
