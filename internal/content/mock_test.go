package content

import (
	"context"
	"fmt"
	"strings"
)

type backendCall struct {
	system      string
	user        string
	temperature float64
	maxTokens   int
}

// mockBackend returns canned responses in order, repeating the last one.
type mockBackend struct {
	responses []string
	err       error
	calls     []backendCall
}

func (m *mockBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	m.calls = append(m.calls, backendCall{systemPrompt, userPrompt, temperature, maxTokens})
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := len(m.calls) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

// mockRetrievalBackend additionally supports web retrieval.
type mockRetrievalBackend struct {
	mockBackend
	retrievalPrompts []string
}

func (m *mockRetrievalBackend) CompleteWithRetrieval(ctx context.Context, prompt string, temperature float64) (string, error) {
	m.retrievalPrompts = append(m.retrievalPrompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.responses[0], nil
}

type mockFetcher struct {
	text string
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, string, error) {
	m.urls = append(m.urls, url)
	return "Title", m.text, m.err
}

// numberedResponse builds a well-formed response with posts first..last.
func numberedResponse(first, last int, dated bool) string {
	var sb strings.Builder
	for i := first; i <= last; i++ {
		if dated {
			fmt.Fprintf(&sb, "POST #%d - Monday, October %d, 2025:\n", i, i+5)
		} else {
			fmt.Fprintf(&sb, "POST #%d:\n", i)
		}
		fmt.Fprintf(&sb, "Content for post %d with **bold** news.\n\nGRAPHIC:\nGraphic for post %d\n\n", i, i)
	}
	return sb.String()
}
