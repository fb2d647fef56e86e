package question

import (
	"errors"
	"strings"
	"testing"

	"github.com/scholarlab/paperqa/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	q, err := New("what dataset does RAG use?", 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Candidates() != DefaultCandidates {
		t.Errorf("Candidates = %d, want %d", q.Candidates(), DefaultCandidates)
	}
	if q.TopChunks() != DefaultTopChunks {
		t.Errorf("TopChunks = %d, want %d", q.TopChunks(), DefaultTopChunks)
	}
}

func TestNew_Clamping(t *testing.T) {
	q, err := New("q", MaxCandidates+50, MaxTopChunks+50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Candidates() != MaxCandidates {
		t.Errorf("Candidates = %d, want %d", q.Candidates(), MaxCandidates)
	}
	if q.TopChunks() != MaxTopChunks {
		t.Errorf("TopChunks = %d, want %d", q.TopChunks(), MaxTopChunks)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
		{"too long", strings.Repeat("a", MaxQueryLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.text, 0, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("error %v is not ErrInvalidQuery", err)
			}
		})
	}
}
