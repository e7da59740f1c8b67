package search

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/usecase/entity"
)

// Searcher is one retrieval source, scoped to a partition ("" = whole corpus).
// Hits are 1-indexed by rank.
type Searcher interface {
	Search(ctx context.Context, query, partition string, k int) ([]result.Result, error)
}

// DocumentStore resolves hit ids to passages.
type DocumentStore interface {
	Get(id string) (*document.Document, int, bool)
	HasPartition(p string) bool
}

// QueryCache memoizes final results per (question, entity).
type QueryCache interface {
	Get(ctx context.Context, query, entity string) (answer.Result, bool)
	Put(ctx context.Context, query, entity string, res answer.Result)
}

// EntityResolver scopes a question to an entity, optionally from session context.
type EntityResolver interface {
	Peek(ctx context.Context, sessionID, query string) entity.Resolution
	Commit(ctx context.Context, sessionID string, r entity.Resolution)
}
