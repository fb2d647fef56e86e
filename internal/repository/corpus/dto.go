package corpus

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/document"
)

// buildPaperFields converts a domain Document into a flat map[string]string for HSET.
func buildPaperFields(doc *document.Document) map[string]string {
	return map[string]string{
		"arxiv_id":       doc.ArxivID(),
		"title":          doc.Title(),
		"summary":        doc.Summary(),
		"summary_vector": vectorToBytes(doc.SummaryVector()),
	}
}

// parsePaperFields converts a flat hash map back into a domain Document.
func parsePaperFields(id string, m map[string]string) document.Document {
	return document.Reconstruct(
		id,
		m["arxiv_id"],
		m["title"],
		m["summary"],
		bytesToVector(m["summary_vector"]),
	)
}

// buildChunkFields converts a domain Chunk into a flat map[string]string for HSET.
func buildChunkFields(c *chunk.Chunk) map[string]string {
	return map[string]string{
		"doc_id":     c.DocID(),
		"seq":        strconv.Itoa(c.Seq()),
		"content":    c.Content(),
		"vector":     vectorToBytes(c.Vector()),
		"section":    c.Section(),
		"subsection": c.Subsection(),
	}
}

// parseChunkFields converts a flat hash map back into a domain Chunk.
func parseChunkFields(docID string, seq int, m map[string]string) chunk.Chunk {
	return chunk.Reconstruct(
		docID,
		seq,
		m["content"],
		bytesToVector(m["vector"]),
		m["section"],
		m["subsection"],
	)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
