// Package extraction turns uploaded leveling-guide files into a normalized
// text representation suitable for structure parsing. It supports PDF, CSV,
// plain text, and markdown inputs.
package extraction

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes is the size limit for uploaded guides. Leveling guides are
// small documents; anything larger is rejected before parsing begins.
const MaxUploadBytes = 10 << 20 // 10 MiB

// MediaType identifies a supported upload format.
type MediaType string

// Supported media types.
const (
	MediaTypePDF      MediaType = "application/pdf"
	MediaTypeCSV      MediaType = "text/csv"
	MediaTypePlain    MediaType = "text/plain"
	MediaTypeMarkdown MediaType = "text/markdown"
)

// Result holds the normalized text plus provenance about how it was produced.
type Result struct {
	Text      string
	MediaType MediaType
	// Sniffed is true when the declared media type was missing or unusable
	// and the format was recovered from the file's magic bytes instead.
	Sniffed bool
}

// Extract converts raw uploaded bytes into normalized text. The declared
// media type is trusted when recognized; otherwise the content is sniffed.
func Extract(data []byte, declaredType string) (*Result, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Message: "uploaded file is empty"}
	}
	if len(data) > MaxUploadBytes {
		return nil, &ExtractionError{
			Message: fmt.Sprintf("file is %d bytes, limit is %d", len(data), MaxUploadBytes),
		}
	}

	mediaType, sniffed, err := resolveMediaType(data, declaredType)
	if err != nil {
		return nil, err
	}

	var text string
	switch mediaType {
	case MediaTypePDF:
		text, err = extractPDF(data)
	case MediaTypeCSV:
		text, err = extractCSV(data)
	case MediaTypePlain, MediaTypeMarkdown:
		text, err = decodeText(data)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, &ExtractionError{Message: "no text content found in file"}
	}

	return &Result{Text: text, MediaType: mediaType, Sniffed: sniffed}, nil
}

// resolveMediaType maps the declared type onto a supported MediaType,
// falling back to magic-byte sniffing when the declaration is absent or
// unrecognized.
func resolveMediaType(data []byte, declared string) (MediaType, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}

	switch normalized {
	case "application/pdf", "pdf":
		return MediaTypePDF, false, nil
	case "text/csv", "application/csv", "csv":
		return MediaTypeCSV, false, nil
	case "text/plain", "txt", "text":
		return MediaTypePlain, false, nil
	case "text/markdown", "markdown", "md":
		return MediaTypeMarkdown, false, nil
	case "":
		// fall through to sniffing
	default:
		return "", false, &UnsupportedFormatError{MediaType: declared}
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is("application/pdf"):
		return MediaTypePDF, true, nil
	case detected.Is("text/csv"):
		return MediaTypeCSV, true, nil
	case detected.Is("text/markdown"):
		return MediaTypeMarkdown, true, nil
	case detected.Is("text/plain") || strings.HasPrefix(detected.String(), "text/"):
		return MediaTypePlain, true, nil
	}
	return "", false, &UnsupportedFormatError{MediaType: detected.String()}
}

// extractPDF pulls text page by page, separating pages with boundary markers
// so the structure parser keeps row/column layout hints.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Message: "malformed PDF", Cause: err}
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{
				Message: fmt.Sprintf("failed to read PDF page %d", pageNum),
				Cause:   err,
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- page %d ---", pageNum), strings.TrimSpace(text))
	}

	return strings.Join(parts, "\n"), nil
}

// extractCSV re-emits the grid one row per line with " | " separators.
// Semantic interpretation (which axis is levels vs competencies) is the
// structure parser's job; this stage only preserves the layout losslessly.
func extractCSV(data []byte) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // ragged rows are common in exported guides

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &ExtractionError{Message: "malformed CSV", Cause: err}
		}
		for i, cell := range record {
			record[i] = strings.TrimSpace(cell)
		}
		lines = append(lines, strings.Join(record, " | "))
	}

	return strings.Join(lines, "\n"), nil
}

// decodeText returns the bytes as UTF-8, transcoding from Latin-1 when the
// content is not valid UTF-8.
func decodeText(data []byte) (string, error) {
	if bytes.ContainsRune(data, 0x00) {
		return "", &ExtractionError{Message: "file contains binary data, not text"}
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	// Latin-1: every byte maps directly to the code point of the same value.
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}
