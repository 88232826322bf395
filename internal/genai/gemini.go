package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gemini "google.golang.org/genai"
)

// DefaultGeminiModel is used when no Gemini model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when Gemini answers without any text candidates.
var ErrNoCandidates = errors.New("no candidates returned")

// contentGenerator is the subset of the Gemini models service used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error)
}

// GeminiClient generates text through the Gemini API. Unlike Client it can
// ground a request in live web content through the Google Search tool.
type GeminiClient struct {
	models    contentGenerator
	model     string
	debugMode bool
	stateDir  string
}

// NewGeminiClient creates a Gemini client. It accepts the same options as
// NewClient. GEMINI_API_KEY is used when no key is given.
func NewGeminiClient(ctx context.Context, opts ...Option) (*GeminiClient, error) {
	cfg := Opts{Model: DefaultGeminiModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY: %w", ErrMissingAPIKey)
	}

	cli, err := gemini.NewClient(ctx, &gemini.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: gemini.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	slog.Debug("genai.NewGeminiClient: Gemini client created", "model", cfg.Model, "debugMode", cfg.DebugMode)
	return &GeminiClient{
		models:    cli.Models,
		model:     cfg.Model,
		debugMode: cfg.DebugMode,
		stateDir:  cfg.StateDir,
	}, nil
}

// Name identifies the backend in logs.
func (g *GeminiClient) Name() string {
	return "gemini:" + g.model
}

// Complete generates a response with an explicit temperature and token ceiling.
func (g *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	config := &gemini.GenerateContentConfig{
		Temperature: gemini.Ptr(float32(temperature)),
	}
	if systemPrompt != "" {
		config.SystemInstruction = gemini.NewContentFromText(systemPrompt, gemini.RoleUser)
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	return g.generate(ctx, "Complete", userPrompt, config)
}

// CompleteWithRetrieval generates a response with Google Search grounding
// enabled, letting the model read web pages the prompt refers to.
func (g *GeminiClient) CompleteWithRetrieval(ctx context.Context, prompt string, temperature float64) (string, error) {
	config := &gemini.GenerateContentConfig{
		Temperature: gemini.Ptr(float32(temperature)),
		Tools: []*gemini.Tool{
			{GoogleSearch: &gemini.GoogleSearch{}},
		},
	}
	return g.generate(ctx, "CompleteWithRetrieval", prompt, config)
}

func (g *GeminiClient) generate(ctx context.Context, method, prompt string, config *gemini.GenerateContentConfig) (string, error) {
	slog.Debug("GeminiClient.generate: sending request", "method", method, "model", g.model, "promptLength", len(prompt))
	resp, err := g.models.GenerateContent(ctx, g.model, gemini.Text(prompt), config)
	if g.debugMode {
		var response interface{} = resp
		if err != nil {
			response = map[string]string{"error": err.Error()}
		}
		if werr := writeDebugLog(g.stateDir, debugEntry{
			Method:   method,
			Model:    g.model,
			Params:   map[string]interface{}{"prompt": prompt, "config": config},
			Response: response,
		}); werr != nil {
			slog.Warn("GeminiClient.generate: failed to write debug log", "method", method, "error", werr)
		}
	}
	if err != nil {
		slog.Error("GeminiClient.generate: generation failed", "method", method, "model", g.model, "error", err)
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := candidateText(resp)
	if text == "" {
		slog.Warn("GeminiClient.generate: no candidates returned", "method", method, "model", g.model)
		return "", ErrNoCandidates
	}
	slog.Debug("GeminiClient.generate: response received", "method", method, "length", len(text))
	return text, nil
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp *gemini.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
