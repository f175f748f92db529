package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/levelguide/internal/llm"
)

type fakeClient struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier, 0)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier, temperature float32) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func testRequest() CellRequest {
	return CellRequest{
		RoleName:       "Software Engineer",
		LevelName:      "L2",
		CompetencyName: "Technical Execution",
		Definition:     "Owns medium-sized features end to end",
	}
}

func TestGenerateExamplesSuccess(t *testing.T) {
	client := &fakeClient{response: `{"examples": [
		"Shipped the payments retry queue, including the design doc and rollout plan",
		"Debugged a cross-service timeout and documented the fix in a postmortem",
		"Refactored the billing worker to cut job latency by 40%"
	]}`}

	examples, err := GenerateExamples(context.Background(), client, testRequest())
	if err != nil {
		t.Fatalf("GenerateExamples() failed: %v", err)
	}
	if len(examples) != 3 {
		t.Errorf("expected 3 examples, got %d", len(examples))
	}
}

func TestGenerateExamplesTruncatesOverflow(t *testing.T) {
	client := &fakeClient{response: `{"examples": ["one", "two", "three", "four", "five"]}`}

	examples, err := GenerateExamples(context.Background(), client, testRequest())
	if err != nil {
		t.Fatalf("GenerateExamples() failed: %v", err)
	}
	if len(examples) != MaxExamplesPerCell {
		t.Errorf("expected %d examples after truncation, got %d", MaxExamplesPerCell, len(examples))
	}
	if examples[2] != "three" {
		t.Errorf("expected first three kept in order, got %v", examples)
	}
}

func TestGenerateExamplesDropsBlankEntries(t *testing.T) {
	client := &fakeClient{response: `{"examples": ["  ", "real example", ""]}`}

	examples, err := GenerateExamples(context.Background(), client, testRequest())
	if err != nil {
		t.Fatalf("GenerateExamples() failed: %v", err)
	}
	if len(examples) != 1 || examples[0] != "real example" {
		t.Errorf("expected only the real example, got %v", examples)
	}
}

func TestGenerateExamplesAllBlank(t *testing.T) {
	client := &fakeClient{response: `{"examples": ["  "]}`}

	_, err := GenerateExamples(context.Background(), client, testRequest())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
}

func TestGenerateExamplesInvalidResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "sure, here are some examples"},
		{"missing examples field", `{"items": ["a"]}`},
		{"empty array", `{"examples": []}`},
		{"wrong item type", `{"examples": [1, 2, 3]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{response: tt.response}
			_, err := GenerateExamples(context.Background(), client, testRequest())
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("expected *GenerationError, got %v", err)
			}
		})
	}
}

func TestGenerateExamplesIncludesCompanyContext(t *testing.T) {
	client := &fakeClient{response: `{"examples": ["example"]}`}
	req := testRequest()
	req.CompanyContext = "Acme builds payment infrastructure"

	if _, err := GenerateExamples(context.Background(), client, req); err != nil {
		t.Fatalf("GenerateExamples() failed: %v", err)
	}
	if !strings.Contains(client.lastPrompt, "Acme builds payment infrastructure") {
		t.Error("prompt missing company context")
	}
}

func TestGenerateExamplesOmitsEmptyContext(t *testing.T) {
	client := &fakeClient{response: `{"examples": ["example"]}`}

	if _, err := GenerateExamples(context.Background(), client, testRequest()); err != nil {
		t.Fatalf("GenerateExamples() failed: %v", err)
	}
	if strings.Contains(client.lastPrompt, "Company context") {
		t.Error("prompt should not mention company context when none is set")
	}
}

func TestGenerateExamplesModelFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}

	_, err := GenerateExamples(context.Background(), client, testRequest())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if genErr.Level != "L2" || genErr.Competency != "Technical Execution" {
		t.Errorf("error missing cell identity: %+v", genErr)
	}
}
