package parsing

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/levelguide/internal/llm"
)

// fakeClient returns canned responses for GenerateJSON.
type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier, 0)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

const validGuideResponse = `{
	"levels": ["L1", "L2"],
	"competencies": ["Technical Execution", "Communication"],
	"cells": [
		{"level": "L1", "competency": "Technical Execution", "definition": "Completes well-scoped tasks"},
		{"level": "L1", "competency": "Communication", "definition": "Shares progress in standups"},
		{"level": "L2", "competency": "Technical Execution", "definition": "Owns medium features"},
		{"level": "L2", "competency": "Communication", "definition": "Writes clear design docs"}
	]
}`

func TestParseGuideSuccess(t *testing.T) {
	client := &fakeClient{response: validGuideResponse}

	guide, err := ParseGuide(context.Background(), client, "some raw guide text")
	if err != nil {
		t.Fatalf("ParseGuide() failed: %v", err)
	}

	if len(guide.Levels) != 2 {
		t.Errorf("expected 2 levels, got %d", len(guide.Levels))
	}
	if guide.Levels[0] != "L1" || guide.Levels[1] != "L2" {
		t.Errorf("level order not preserved: %v", guide.Levels)
	}
	if len(guide.Competencies) != 2 {
		t.Errorf("expected 2 competencies, got %d", len(guide.Competencies))
	}
	if guide.Competencies[0] != "Technical Execution" {
		t.Errorf("competency order not preserved: %v", guide.Competencies)
	}
	if len(guide.Cells) != 4 {
		t.Errorf("expected 4 cells, got %d", len(guide.Cells))
	}
}

func TestParseGuideStripsMarkdownFence(t *testing.T) {
	client := &fakeClient{response: "```json\n" + validGuideResponse + "\n```"}

	guide, err := ParseGuide(context.Background(), client, "raw text")
	if err != nil {
		t.Fatalf("ParseGuide() failed: %v", err)
	}
	if len(guide.Cells) != 4 {
		t.Errorf("expected 4 cells, got %d", len(guide.Cells))
	}
}

func TestParseGuideDropsUnknownReferences(t *testing.T) {
	client := &fakeClient{response: `{
		"levels": ["L1"],
		"competencies": ["Communication"],
		"cells": [
			{"level": "L1", "competency": "Communication", "definition": "Shares progress"},
			{"level": "L9", "competency": "Communication", "definition": "Unknown level"},
			{"level": "L1", "competency": "Sorcery", "definition": "Unknown competency"}
		]
	}`}

	guide, err := ParseGuide(context.Background(), client, "raw text")
	if err != nil {
		t.Fatalf("ParseGuide() failed: %v", err)
	}
	if len(guide.Cells) != 1 {
		t.Fatalf("expected 1 cell after dropping unknown references, got %d", len(guide.Cells))
	}
	if guide.Cells[0].Competency != "Communication" {
		t.Errorf("wrong surviving cell: %+v", guide.Cells[0])
	}
}

func TestParseGuideDedupesCells(t *testing.T) {
	client := &fakeClient{response: `{
		"levels": ["L1"],
		"competencies": ["Communication"],
		"cells": [
			{"level": "L1", "competency": "Communication", "definition": "first"},
			{"level": "L1", "competency": "Communication", "definition": "second"}
		]
	}`}

	guide, err := ParseGuide(context.Background(), client, "raw text")
	if err != nil {
		t.Fatalf("ParseGuide() failed: %v", err)
	}
	if len(guide.Cells) != 1 {
		t.Fatalf("expected duplicate cell to be dropped, got %d cells", len(guide.Cells))
	}
	if guide.Cells[0].Definition != "first" {
		t.Errorf("expected first occurrence to win, got %q", guide.Cells[0].Definition)
	}
}

func TestParseGuideDropsEmptyDefinitions(t *testing.T) {
	client := &fakeClient{response: `{
		"levels": ["L1"],
		"competencies": ["Communication", "Leadership"],
		"cells": [
			{"level": "L1", "competency": "Communication", "definition": "   "},
			{"level": "L1", "competency": "Leadership", "definition": "Mentors peers"}
		]
	}`}

	guide, err := ParseGuide(context.Background(), client, "raw text")
	if err != nil {
		t.Fatalf("ParseGuide() failed: %v", err)
	}
	if len(guide.Cells) != 1 {
		t.Fatalf("expected whitespace-only cell to be dropped, got %d cells", len(guide.Cells))
	}
}

func TestParseGuideInvalidJSON(t *testing.T) {
	client := &fakeClient{response: "this is not json at all"}

	_, err := ParseGuide(context.Background(), client, "raw text")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T", err)
	}
}

func TestParseGuideSchemaViolation(t *testing.T) {
	// Missing required "cells" field.
	client := &fakeClient{response: `{"levels": ["L1"], "competencies": ["Communication"]}`}

	_, err := ParseGuide(context.Background(), client, "raw text")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestParseGuideEmptyLevels(t *testing.T) {
	client := &fakeClient{response: `{"levels": [], "competencies": ["Communication"], "cells": []}`}

	_, err := ParseGuide(context.Background(), client, "raw text")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError for empty levels, got %v", err)
	}
}

func TestParseGuideAPIFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}

	_, err := ParseGuide(context.Background(), client, "raw text")
	var apiErr *APICallError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APICallError, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", client.calls)
	}
}
