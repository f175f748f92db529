// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/generation"
	"github.com/jonathan/levelguide/internal/parsing"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintGuide outputs a human-readable summary of the parsed guide
// structure.
func (p *Printer) PrintGuide(guide *parsing.ParsedGuide) {
	if guide == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Levels:       %d\n", len(guide.Levels)))
	sb.WriteString(fmt.Sprintf("Competencies: %d\n", len(guide.Competencies)))
	sb.WriteString(fmt.Sprintf("Cells:        %d of %d filled\n",
		len(guide.Cells), len(guide.Levels)*len(guide.Competencies)))
	sb.WriteString("\n")

	if len(guide.Levels) > 0 {
		sb.WriteString("Levels:\n")
		count := min(len(guide.Levels), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", guide.Levels[i]))
		}
		if len(guide.Levels) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(guide.Levels)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(guide.Competencies) > 0 {
		sb.WriteString("Competencies:\n")
		count := min(len(guide.Competencies), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", guide.Competencies[i]))
		}
		if len(guide.Competencies) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(guide.Competencies)-maxItemsToShow))
		}
	}

	p.printBox("PARSED GUIDE STRUCTURE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGrid outputs a summary of a processed role grid, including example
// counts and quality highlights per cell.
func (p *Printer) PrintGrid(grid *db.RoleGrid) {
	if grid == nil || grid.Role == nil {
		return
	}

	levelNames := make(map[uuid.UUID]string, len(grid.Levels))
	for _, l := range grid.Levels {
		levelNames[l.ID] = l.Name
	}
	competencyNames := make(map[uuid.UUID]string, len(grid.Competencies))
	for _, c := range grid.Competencies {
		competencyNames[c.ID] = c.Name
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Role:   %s\n", grid.Role.Name))
	sb.WriteString(fmt.Sprintf("Status: %s\n", grid.Role.Status))
	sb.WriteString(fmt.Sprintf("Grid:   %d levels x %d competencies\n",
		len(grid.Levels), len(grid.Competencies)))
	sb.WriteString("\n")

	count := min(len(grid.Cells), maxItemsToShow)
	for i := 0; i < count; i++ {
		cell := grid.Cells[i]
		sb.WriteString(fmt.Sprintf("%s / %s: %d examples",
			levelNames[cell.LevelID], competencyNames[cell.CompetencyID], len(cell.Examples)))
		if score, ok := uniquenessScore(cell.QualityMetrics); ok {
			sb.WriteString(fmt.Sprintf(" (uniqueness %.2f)", score))
		}
		sb.WriteString("\n")
	}
	if len(grid.Cells) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more cells\n", len(grid.Cells)-maxItemsToShow))
	}

	p.printBox("GENERATED GRID", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the terminal state of a processed role.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResult(role *db.Role) {
	if role == nil {
		return
	}

	if role.Status == db.RoleStatusCompleted {
		p.printBox("✅ PROCESSING COMPLETED", role.StatusMessage)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status: %s\n", role.Status))
	sb.WriteString(role.StatusMessage)
	p.printBox("⚠ PROCESSING FAILED", sb.String())
}

func uniquenessScore(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var metrics generation.QualityMetrics
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return 0, false
	}
	return metrics.UniquenessScore, true
}
