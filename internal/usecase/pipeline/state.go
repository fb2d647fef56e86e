package pipeline

// State marks how far a retrieval request has progressed. Each request moves
// through the states in order; NoEvidence is a terminal shortcut taken when
// selection keeps zero documents.
type State string

const (
	// StateStarted is the initial state.
	StateStarted State = "started"
	// StateDocumentsRetrieved follows the semantic/lexical join barrier.
	StateDocumentsRetrieved State = "documents_retrieved"
	// StateDocumentsFused follows rank fusion.
	StateDocumentsFused State = "documents_fused"
	// StateDocumentsSelected follows reranked selection.
	StateDocumentsSelected State = "documents_selected"
	// StateChunksScored follows chunk scoring.
	StateChunksScored State = "chunks_scored"
	// StateReady means the evidence set is packaged for generation.
	StateReady State = "ready"
	// StateNoEvidence means no document cleared the selection threshold.
	// Generation remains invocable with an empty context.
	StateNoEvidence State = "no_evidence"
)
