package document

import (
	"fmt"
	"regexp"
)

// arXiv ids with an optional version suffix, e.g. "2005.11401v4" or
// "cs_CL-9901001". Dots and underscores appear in legacy identifiers.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// MaxSummarySize is the maximum document summary size in bytes.
const MaxSummarySize = 16384 // 16KB

// Document is a corpus paper (immutable value object). The summary is a
// condensed per-section digest produced at ingestion; its embedding is the
// document-level semantic search key.
type Document struct {
	id            string
	arxivID       string
	title         string
	summary       string
	summaryVector []float32
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9._-]+$, 1-128 chars. Summary: non-empty, max 16KB.
func New(id, arxivID, title, summary string, summaryVector []float32) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 128 {
		return Document{}, fmt.Errorf("document ID too long (max 128)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with dots, underscores and hyphens")
	}
	if summary == "" {
		return Document{}, fmt.Errorf("summary is required")
	}
	if len(summary) > MaxSummarySize {
		return Document{}, fmt.Errorf("summary too large (max %d bytes)", MaxSummarySize)
	}
	if arxivID == "" {
		arxivID = id
	}

	return Document{
		id:            id,
		arxivID:       arxivID,
		title:         title,
		summary:       summary,
		summaryVector: summaryVector,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, arxivID, title, summary string, summaryVector []float32) Document {
	return Document{
		id:            id,
		arxivID:       arxivID,
		title:         title,
		summary:       summary,
		summaryVector: summaryVector,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// ArxivID returns the source arXiv identifier.
func (d *Document) ArxivID() string { return d.arxivID }

// Title returns the paper title.
func (d *Document) Title() string { return d.title }

// Summary returns the condensed document summary.
func (d *Document) Summary() string { return d.summary }

// SummaryVector returns the summary embedding.
func (d *Document) SummaryVector() []float32 { return d.summaryVector }

// WithSummaryVector returns a copy with the given embedding set.
func (d *Document) WithSummaryVector(v []float32) Document {
	return Document{
		id: d.id, arxivID: d.arxivID, title: d.title,
		summary: d.summary, summaryVector: v,
	}
}
