package domain

import "errors"

// Sentinel errors shared across layers. Transport maps them to HTTP statuses.
var (
	// ErrInvalidQuery signals an empty or malformed query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrDocumentNotFound signals a missing corpus document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrProviderUnavailable signals an unreachable or timed-out external provider.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrSearchUnavailable signals that both the semantic and lexical document
	// searches failed. The request is safe to retry.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrGenerationFailed signals an answer generation failure.
	ErrGenerationFailed = errors.New("generation failed")
)
