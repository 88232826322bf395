package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp   openai.ChatCompletion
	err    error
	params openai.ChatCompletionNewParams
	calls  int
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.calls++
	m.params = params
	return m.resp, m.err
}

func completionWith(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestComplete_TrimsResponse(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("  POST #1:\nHello  ")}, model: "test-model"}
	out, err := client.Complete(context.Background(), "system prompt", "user prompt", 0.7, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "POST #1:\nHello" {
		t.Errorf("expected trimmed response, got %q", out)
	}
}

func TestComplete_UsesCallSettings(t *testing.T) {
	mock := &mockChatService{resp: completionWith("ok")}
	client := &Client{chat: mock, model: "test-model"}
	if _, err := client.Complete(context.Background(), "sys", "usr", 0.7, 2900); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected one call, got %d", mock.calls)
	}
	if got := mock.params.Temperature.Value; got != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", got)
	}
	if got := mock.params.MaxTokens.Value; got != 2900 {
		t.Errorf("expected max tokens 2900, got %v", got)
	}
	if len(mock.params.Messages) != 2 {
		t.Errorf("expected system and user messages, got %d", len(mock.params.Messages))
	}
}

func TestComplete_ZeroMaxTokensOmitsCeiling(t *testing.T) {
	mock := &mockChatService{resp: completionWith("ok")}
	client := &Client{chat: mock, model: "test-model"}
	if _, err := client.Complete(context.Background(), "sys", "usr", 0.5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mock.params.MaxTokens.Value; got != 0 {
		t.Errorf("max tokens should be unset, got %v", got)
	}
}

func TestComplete_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.Complete(context.Background(), "sys", "usr", 0.7, 100)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.Complete(context.Background(), "sys", "usr", 0.7, 100)
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cli.model != DefaultModel {
		t.Errorf("expected default model, got %q", cli.model)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.Name() != "openai:gpt-4o-mini" {
		t.Errorf("unexpected backend name %q", cli.Name())
	}
}
