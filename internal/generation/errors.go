package generation

import "fmt"

// GenerationError represents a failure to produce examples for one cell.
// A single cell failing never fails the role; the pipeline records the error
// and moves on.
type GenerationError struct {
	Level      string
	Competency string
	Message    string
	Cause      error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed for %s/%s: %s: %v", e.Level, e.Competency, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed for %s/%s: %s", e.Level, e.Competency, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
