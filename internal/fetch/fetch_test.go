package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Roasting at Home</title></head>
<body>
<nav>Home | About | Shop</nav>
<article>
<h1>Roasting at Home</h1>
<p>Home roasting has grown steadily as specialty coffee drinkers look for fresher beans and more control over flavour. A small air roaster is enough to get started.</p>
<p>The first crack signals a light roast. Most roasters stop somewhere between first and second crack, depending on the origin and the brewing method they prefer.</p>
<p>Resting the beans for a day or two lets carbon dioxide escape, which makes extraction more even and the cup noticeably sweeter.</p>
</article>
</body>
</html>`

func TestFetch_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	f := New(WithHTTPClient(server.Client()), WithUserAgent("test-agent"))
	_, text, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "first crack") {
		t.Errorf("expected article text, got: %s", text)
	}
	if gotUA != "test-agent" {
		t.Errorf("expected user agent to be sent, got %q", gotUA)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := New(WithHTTPClient(server.Client()))
	if _, _, err := f.Fetch(context.Background(), server.URL); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetch_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head></head><body></body></html>`))
	}))
	defer server.Close()

	f := New(WithHTTPClient(server.Client()))
	_, _, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for page without content")
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := New(WithHTTPClient(server.Client()))
	if _, _, err := f.Fetch(ctx, server.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
