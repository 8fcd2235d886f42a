// Package extraction wraps the OCR/structured-extraction pipeline: fetch the
// stored object, extract its text, propose structured fields, and flag
// sensitive-content keywords. Extraction is advisory; its failure never
// blocks document placement.
package extraction

import (
	"errors"

	"github.com/refdock/refdock/internal/domain/documents"
)

// Extraction modes.
const (
	ModeFull     = "full"
	ModeTextOnly = "text_only"
)

var (
	ErrInvalidFileKey  = errors.New("invalid file key")
	ErrUnsupportedType = errors.New("unsupported file type for text extraction")
	ErrUnreachable     = errors.New("extraction backend unreachable")
)

// Meta describes the extracted source.
type Meta struct {
	CharCount  int    `json:"char_count"`
	PageCount  *int   `json:"page_count,omitempty"`
	SourceType string `json:"source_type"`
	FileKey    string `json:"file_key"`
}

// Evidence is one keyword hit with its surrounding text.
type Evidence struct {
	Keyword string `json:"keyword"`
	Snippet string `json:"snippet"`
}

// Alert flags possible sensitive content. It is a heuristic notice for human
// review, never a determination.
type Alert struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Severity string     `json:"severity"` // "low" | "medium" | "high"
	Evidence []Evidence `json:"evidence"`
}

// Result is the normalized outcome of one extraction run.
type Result struct {
	Text           string                      `json:"text"`
	TextNormalized *string                     `json:"text_normalized"`
	Meta           Meta                        `json:"meta"`
	Structured     *documents.StructuredFields `json:"structured"`
	Alerts         []Alert                     `json:"alerts"`
	Warnings       []string                    `json:"warnings"`
}
