// Package generation produces concrete behavioral examples for each cell of
// a parsed leveling guide. One model call per cell, creative temperature,
// grounded in company context when available.
package generation

import (
	"context"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/jonathan/levelguide/internal/llm"
	"github.com/jonathan/levelguide/internal/prompts"
	"github.com/jonathan/levelguide/internal/schemas"
)

//go:embed examples_schema.json
var examplesSchema string

// MaxExamplesPerCell caps how many examples are stored per cell. The model
// is asked for exactly this many; overflow is truncated rather than rejected.
const MaxExamplesPerCell = 3

// CellRequest carries everything needed to generate examples for one cell.
type CellRequest struct {
	RoleName       string
	LevelName      string
	CompetencyName string
	Definition     string
	CompanyContext string
}

// GenerateExamples asks the model for behavioral examples matching the
// cell's requirement. Returns between 1 and MaxExamplesPerCell examples.
func GenerateExamples(ctx context.Context, client llm.Client, req CellRequest) ([]string, error) {
	prompt := buildExamplesPrompt(req)

	responseText, err := llm.WithRetry(ctx, llm.DefaultMaxAttempts, llm.DefaultBaseDelay, func() (string, error) {
		return client.GenerateJSON(ctx, prompt, llm.TierStandard, llm.TemperatureCreative)
	})
	if err != nil {
		return nil, &GenerationError{
			Level:      req.LevelName,
			Competency: req.CompetencyName,
			Message:    "model call failed",
			Cause:      err,
		}
	}

	return parseExamplesResponse(req, responseText)
}

func buildExamplesPrompt(req CellRequest) string {
	contextSection := ""
	if req.CompanyContext != "" {
		section := prompts.MustGet("generation.json", "company-context-section")
		contextSection = prompts.Format(section, map[string]string{
			"Context": req.CompanyContext,
		})
	}

	template := prompts.MustGet("generation.json", "generate-examples")
	return prompts.Format(template, map[string]string{
		"RoleName":       req.RoleName,
		"LevelName":      req.LevelName,
		"CompetencyName": req.CompetencyName,
		"Definition":     req.Definition,
		"CompanyContext": contextSection,
	})
}

func parseExamplesResponse(req CellRequest, responseText string) ([]string, error) {
	responseText = llm.CleanJSONBlock(responseText)

	if err := schemas.ValidateJSONString(examplesSchema, responseText); err != nil {
		return nil, &GenerationError{
			Level:      req.LevelName,
			Competency: req.CompetencyName,
			Message:    "model response does not match examples schema",
			Cause:      err,
		}
	}

	var payload struct {
		Examples []string `json:"examples"`
	}
	if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
		return nil, &GenerationError{
			Level:      req.LevelName,
			Competency: req.CompetencyName,
			Message:    "failed to decode model response",
			Cause:      err,
		}
	}

	examples := make([]string, 0, MaxExamplesPerCell)
	for _, example := range payload.Examples {
		example = strings.TrimSpace(example)
		if example == "" {
			continue
		}
		examples = append(examples, example)
		if len(examples) == MaxExamplesPerCell {
			break
		}
	}

	if len(examples) == 0 {
		return nil, &GenerationError{
			Level:      req.LevelName,
			Competency: req.CompetencyName,
			Message:    "model returned no usable examples",
		}
	}

	return examples, nil
}
