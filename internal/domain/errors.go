package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a question rejected before entering the pipeline.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRetrieval signals that a required retrieval source (semantic or keyword) failed.
	// Callers render it as "try again later", never as "no information".
	ErrRetrieval = errors.New("retrieval unavailable")
	// ErrDocumentNotFound signals a document id unknown to the corpus.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyCorpus signals that no documents could be loaded.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals vectors of different dimensions.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrScorerUnavailable signals a cross-encoder failure.
	ErrScorerUnavailable = errors.New("cross-encoder unavailable")
	// ErrLLMUnavailable signals a candidate filter model failure.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrMalformedResponse signals a collaborator reply that could not be interpreted.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRateLimited signals a rate limit hit at a collaborator.
	ErrRateLimited = errors.New("rate limited")
)

// StageError attaches the failing pipeline stage to an error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// NewRetrievalError wraps err as a fatal retrieval failure of the given source.
func NewRetrievalError(source string, err error) error {
	return &StageError{Stage: source, Err: fmt.Errorf("%w: %w", ErrRetrieval, err)}
}
