// Package grounding builds the optional company-context snippet used to
// anchor generated examples in a company's actual products and practices.
// Grounding is best-effort: a role upload must never fail because a company
// website was slow, blocked, or unparseable, so every failure path here
// degrades to an empty context.
package grounding

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jonathan/levelguide/internal/fetch"
	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/prompts"
)

// MaxContextChars caps the context passed into generation prompts. Company
// pages can run to tens of thousands of characters and most of it is
// irrelevant to leveling examples.
const MaxContextChars = 4000

// CondenseThreshold is the page-text length above which we ask the model for
// a short summary instead of clamping raw text.
const CondenseThreshold = 6000

// FetchTimeout bounds the whole website fetch. Grounding runs inside the
// processing pipeline and must not stall it.
const FetchTimeout = 10 * time.Second

// Fetcher retrieves and condenses company website content.
type Fetcher struct {
	client     llm.Client
	options    *fetch.Options
	useBrowser bool
}

// NewFetcher creates a Fetcher. The LLM client is optional; without one,
// long pages are clamped instead of condensed.
func NewFetcher(client llm.Client) *Fetcher {
	return &Fetcher{
		client: client,
		options: &fetch.Options{
			Timeout:   FetchTimeout,
			UserAgent: fetch.DefaultUserAgent,
		},
	}
}

// EnableBrowser turns on headless-browser fallback for company sites that
// render their content client-side. Requires Chrome on the host.
func (f *Fetcher) EnableBrowser() *Fetcher {
	f.useBrowser = true
	return f
}

// CompanyContext fetches the company website and returns a context snippet
// for generation prompts. It returns "" when the URL is empty or anything
// goes wrong; failures are logged, never propagated.
func (f *Fetcher) CompanyContext(ctx context.Context, websiteURL string) string {
	websiteURL = strings.TrimSpace(websiteURL)
	if websiteURL == "" {
		return ""
	}
	if !strings.HasPrefix(websiteURL, "http://") && !strings.HasPrefix(websiteURL, "https://") {
		websiteURL = "https://" + websiteURL
	}

	fetchCtx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	result, err := fetch.URL(fetchCtx, websiteURL, f.options)
	if err != nil {
		log.Printf("[grounding] fetch failed for %s: %v", websiteURL, err)
		return ""
	}

	text, err := fetch.ExtractMainText(result.HTML, fetch.CompanyPageSelectors())
	if err != nil {
		log.Printf("[grounding] text extraction failed for %s: %v", websiteURL, err)
		return ""
	}

	text = strings.TrimSpace(text)

	if f.useBrowser && fetch.ShouldUseBrowser(text) {
		if rendered := f.fetchRendered(ctx, websiteURL); rendered != "" {
			text = rendered
		}
	}

	if text == "" {
		return ""
	}

	if len(text) > CondenseThreshold && f.client != nil {
		if condensed := f.condense(ctx, text); condensed != "" {
			return condensed
		}
		// Condensation failure falls through to clamping.
	}

	return Clamp(text, MaxContextChars)
}

// fetchRendered retries the page through a headless browser for sites that
// serve an empty shell to plain HTTP clients. Returns "" on any failure.
func (f *Fetcher) fetchRendered(ctx context.Context, websiteURL string) string {
	html, err := fetch.WithBrowser(ctx, websiteURL, FetchTimeout, false)
	if err != nil {
		log.Printf("[grounding] browser fetch failed for %s: %v", websiteURL, err)
		return ""
	}
	text, err := fetch.ExtractMainText(html, fetch.CompanyPageSelectors())
	if err != nil {
		log.Printf("[grounding] browser text extraction failed for %s: %v", websiteURL, err)
		return ""
	}
	return strings.TrimSpace(text)
}

// condense asks the lite model for a short company summary. Returns "" on
// any failure.
func (f *Fetcher) condense(ctx context.Context, pageText string) string {
	template, err := prompts.Get("grounding.json", "condense-context")
	if err != nil {
		log.Printf("[grounding] prompt load failed: %v", err)
		return ""
	}

	prompt := prompts.Format(template, map[string]string{
		"PageText": Clamp(pageText, MaxContextChars*4),
	})

	summary, err := f.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		log.Printf("[grounding] condensation failed: %v", err)
		return ""
	}

	return Clamp(strings.TrimSpace(summary), MaxContextChars)
}

// Clamp truncates text to max characters, cutting at a word boundary when
// one is close.
func Clamp(text string, max int) string {
	if len(text) <= max {
		return text
	}
	clamped := text[:max]
	if idx := strings.LastIndexByte(clamped, ' '); idx > max-200 {
		clamped = clamped[:idx]
	}
	return clamped
}
