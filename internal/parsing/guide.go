// Package parsing recovers the structure of a leveling guide from normalized
// text using LLM extraction. Leveling guides have no fixed layout (tables,
// prose, nested bullets), so structure recovery is delegated to a model under
// a strict output schema; the schema contract, not the prompt wording, is
// what the rest of the pipeline relies on.
package parsing

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/prompts"
	"github.com/jonathan/levelguide/internal/schemas"
)

//go:embed guide_schema.json
var guideSchema string

// ParseGuide extracts the level/competency grid from normalized guide text.
// The model response is validated against the embedded schema before being
// trusted; cells referencing unknown level or competency names are dropped
// with a warning rather than failing the parse.
func ParseGuide(ctx context.Context, client llm.Client, rawText string) (*ParsedGuide, error) {
	prompt := buildExtractionPrompt(rawText)

	responseText, err := llm.WithRetry(ctx, llm.DefaultMaxAttempts, llm.DefaultBaseDelay, func() (string, error) {
		return client.GenerateJSON(ctx, prompt, llm.TierAdvanced, llm.TemperatureExtraction)
	})
	if err != nil {
		return nil, &APICallError{
			Message: "failed to extract guide structure",
			Cause:   err,
		}
	}

	return validateResponse(responseText)
}

// buildExtractionPrompt constructs the prompt for structured extraction
func buildExtractionPrompt(rawText string) string {
	template := prompts.MustGet("parsing.json", "extract-guide")
	return prompts.Format(template, map[string]string{
		"RawText": rawText,
	})
}

// validateResponse checks the model output against the guide schema and
// normalizes it into a ParsedGuide.
func validateResponse(responseText string) (*ParsedGuide, error) {
	responseText = llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateJSONString(guideSchema, responseText); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &ParseError{
				Message: "model response does not match guide schema",
				Cause:   validationErr,
			}
		}
		return nil, &ParseError{
			Message: "model response is not valid JSON",
			Cause:   err,
		}
	}

	var guide ParsedGuide
	if err := json.Unmarshal([]byte(responseText), &guide); err != nil {
		return nil, &ParseError{
			Message: "failed to decode model response",
			Cause:   err,
		}
	}

	return normalizeGuide(&guide)
}

// normalizeGuide trims names, deduplicates grid axes, and drops cells that
// reference names absent from the level/competency lists. Order is preserved
// exactly as the model returned it.
func normalizeGuide(guide *ParsedGuide) (*ParsedGuide, error) {
	levels := dedupeNames(guide.Levels)
	competencies := dedupeNames(guide.Competencies)

	if len(levels) == 0 {
		return nil, &ParseError{Message: "model returned no levels"}
	}
	if len(competencies) == 0 {
		return nil, &ParseError{Message: "model returned no competencies"}
	}

	levelSet := make(map[string]bool, len(levels))
	for _, name := range levels {
		levelSet[name] = true
	}
	competencySet := make(map[string]bool, len(competencies))
	for _, name := range competencies {
		competencySet[name] = true
	}

	type cellKey struct{ level, competency string }
	seen := make(map[cellKey]bool, len(guide.Cells))

	cells := make([]ParsedCell, 0, len(guide.Cells))
	for _, cell := range guide.Cells {
		cell.Level = strings.TrimSpace(cell.Level)
		cell.Competency = strings.TrimSpace(cell.Competency)
		cell.Definition = strings.TrimSpace(cell.Definition)

		if !levelSet[cell.Level] || !competencySet[cell.Competency] {
			log.Printf("[parsing] dropping cell with unknown reference: level=%q competency=%q", cell.Level, cell.Competency)
			continue
		}
		if cell.Definition == "" {
			log.Printf("[parsing] dropping empty cell: level=%q competency=%q", cell.Level, cell.Competency)
			continue
		}

		key := cellKey{cell.Level, cell.Competency}
		if seen[key] {
			log.Printf("[parsing] dropping duplicate cell: level=%q competency=%q", cell.Level, cell.Competency)
			continue
		}
		seen[key] = true
		cells = append(cells, cell)
	}

	return &ParsedGuide{
		Levels:       levels,
		Competencies: competencies,
		Cells:        cells,
	}, nil
}

// dedupeNames trims whitespace and removes empty or repeated names while
// keeping first-seen order.
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
