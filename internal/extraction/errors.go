package extraction

import "fmt"

// UnsupportedFormatError indicates the upload's media type is not one the
// extractor knows how to read.
type UnsupportedFormatError struct {
	MediaType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported media type: %s (supported: pdf, csv, plain text, markdown)", e.MediaType)
}

// ExtractionError indicates the byte stream could not be read as its declared
// format (corrupt PDF, undecodable text, oversized upload).
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
