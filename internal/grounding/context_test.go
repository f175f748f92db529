package grounding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonathan/levelguide/internal/llm"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error) {
	return f.GenerateContent(ctx, prompt, tier)
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func TestCompanyContextEmptyURL(t *testing.T) {
	fetcher := NewFetcher(nil)
	if got := fetcher.CompanyContext(context.Background(), ""); got != "" {
		t.Errorf("expected empty context for empty URL, got %q", got)
	}
	if got := fetcher.CompanyContext(context.Background(), "   "); got != "" {
		t.Errorf("expected empty context for blank URL, got %q", got)
	}
}

func TestCompanyContextFetchesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main><h1>Acme Corp</h1><p>We build payment infrastructure for small businesses.</p></main></body></html>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	got := fetcher.CompanyContext(context.Background(), server.URL)
	if !strings.Contains(got, "payment infrastructure") {
		t.Errorf("context missing page content: %q", got)
	}
}

func TestCompanyContextUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := NewFetcher(nil)
	if got := fetcher.CompanyContext(context.Background(), url); got != "" {
		t.Errorf("expected empty context for unreachable host, got %q", got)
	}
}

func TestCompanyContextHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewFetcher(nil)
	if got := fetcher.CompanyContext(context.Background(), server.URL); got != "" {
		t.Errorf("expected empty context on HTTP 403, got %q", got)
	}
}

func TestCompanyContextCondensesLongPages(t *testing.T) {
	long := strings.Repeat("We build developer tools for platform teams. ", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main><p>" + long + "</p></main></body></html>"))
	}))
	defer server.Close()

	client := &fakeClient{response: "Acme builds developer tools for platform teams."}
	fetcher := NewFetcher(client)

	got := fetcher.CompanyContext(context.Background(), server.URL)
	if got != "Acme builds developer tools for platform teams." {
		t.Errorf("expected condensed summary, got %q", got)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 condensation call, got %d", client.calls)
	}
}

func TestCompanyContextClampsWhenCondensationFails(t *testing.T) {
	long := strings.Repeat("We build developer tools for platform teams. ", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><main><p>" + long + "</p></main></body></html>"))
	}))
	defer server.Close()

	client := &fakeClient{err: errors.New("model unavailable")}
	fetcher := NewFetcher(client)

	got := fetcher.CompanyContext(context.Background(), server.URL)
	if got == "" {
		t.Fatal("expected clamped fallback, got empty context")
	}
	if len(got) > MaxContextChars {
		t.Errorf("context exceeds clamp: %d chars", len(got))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want func(string) bool
	}{
		{
			name: "short text unchanged",
			text: "hello world",
			max:  100,
			want: func(s string) bool { return s == "hello world" },
		},
		{
			name: "long text truncated",
			text: strings.Repeat("word ", 100),
			max:  50,
			want: func(s string) bool { return len(s) <= 50 },
		},
		{
			name: "cuts at word boundary",
			text: strings.Repeat("abc ", 100),
			max:  50,
			want: func(s string) bool { return !strings.HasSuffix(s, "ab") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.text, tt.max)
			if !tt.want(got) {
				t.Errorf("Clamp() = %q", got)
			}
		})
	}
}
