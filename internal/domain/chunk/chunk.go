package chunk

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxContentSize is the maximum chunk content size in bytes.
const MaxContentSize = 32768 // 32KB

// Chunk is a retrievable unit of paper text (immutable value object). Seq is
// the chunk's original position within its document and breaks scoring ties.
type Chunk struct {
	docID      string
	seq        int
	content    string
	vector     []float32
	section    string
	subsection string
}

// New validates and creates a Chunk.
func New(docID string, seq int, content string, vector []float32, section, subsection string) (Chunk, error) {
	if docID == "" {
		return Chunk{}, fmt.Errorf("chunk document ID is required")
	}
	if seq < 0 {
		return Chunk{}, fmt.Errorf("chunk seq must be non-negative")
	}
	if content == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	if len(content) > MaxContentSize {
		return Chunk{}, fmt.Errorf("chunk content too large (max %d bytes)", MaxContentSize)
	}

	return Chunk{
		docID:      docID,
		seq:        seq,
		content:    content,
		vector:     vector,
		section:    section,
		subsection: subsection,
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(docID string, seq int, content string, vector []float32, section, subsection string) Chunk {
	return Chunk{
		docID:      docID,
		seq:        seq,
		content:    content,
		vector:     vector,
		section:    section,
		subsection: subsection,
	}
}

// DocID returns the owning document identifier.
func (c *Chunk) DocID() string { return c.docID }

// Seq returns the chunk's position within its document.
func (c *Chunk) Seq() int { return c.seq }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Vector returns the chunk embedding.
func (c *Chunk) Vector() []float32 { return c.vector }

// Section returns the section heading this chunk came from.
func (c *Chunk) Section() string { return c.section }

// Subsection returns the subsection heading, if any.
func (c *Chunk) Subsection() string { return c.subsection }

// LooksLikeProse reports whether content reads like real sentence text rather
// than a broken PDF extraction, a table fragment or a run of numbers. Applied
// at ingestion so the index never holds junk chunks.
func LooksLikeProse(content string) bool {
	s := strings.TrimSpace(content)
	words := strings.Fields(s)
	if s == "" || len(s) < 35 || len(words) < 5 {
		return false
	}

	n := len(s)
	nw := len(words)

	var digits int
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}

	var single, alpha int
	var totalLen int
	unique := make(map[string]struct{}, nw)
	for _, w := range words {
		if len(w) == 1 {
			single++
		}
		if strings.ContainsFunc(w, unicode.IsLetter) {
			alpha++
		}
		totalLen += len(w)
		unique[strings.ToLower(w)] = struct{}{}
	}

	digitRatio := float64(digits) / float64(n)
	singleRatio := float64(single) / float64(nw)
	alphaRatio := float64(alpha) / float64(nw)
	uniqueRatio := float64(len(unique)) / float64(nw)
	avgLen := float64(totalLen) / float64(nw)
	hasSentenceEnd := strings.ContainsAny(s, ".!?")

	if digitRatio > 0.4 || singleRatio > 0.28 || alphaRatio < 0.5 || uniqueRatio < 0.3 {
		return false
	}
	if !hasSentenceEnd && avgLen < 3.2 {
		return false
	}
	// All-caps shouting shorter than a sentence is a heading, not prose.
	if n < 80 && s == strings.ToUpper(s) && strings.ContainsFunc(s, unicode.IsLetter) {
		return false
	}
	return true
}
