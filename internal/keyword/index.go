// Package keyword is the BM25 keyword index. It is built once at startup for
// the whole corpus and for every partition, and is read-only afterwards.
package keyword

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/corpus"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Index serves keyword searches over prebuilt per-partition BM25 indexes.
type Index struct {
	store *corpus.Store
	all   *bm25
	parts map[string]*bm25
}

// Build tokenizes the corpus once and builds the whole-corpus and partition indexes.
func Build(store *corpus.Store, logger *zap.Logger) *Index {
	start := time.Now()

	tokenized := make([][]string, store.Len())
	for i := range tokenized {
		tokenized[i] = Tokenize(store.At(i).Content())
	}

	ix := &Index{
		store: store,
		all:   newBM25(store.Positions(""), tokenized),
		parts: make(map[string]*bm25, len(store.Partitions())),
	}

	for _, p := range store.Partitions() {
		positions := store.Positions(p)
		subset := make([][]string, len(positions))
		for slot, pos := range positions {
			subset[slot] = tokenized[pos]
		}
		ix.parts[p] = newBM25(positions, subset)
	}

	logger.Info("Keyword index built",
		zap.Int("documents", store.Len()),
		zap.Int("partitions", len(ix.parts)),
		zap.Int("terms", len(ix.all.postings)),
		zap.Duration("duration", time.Since(start)),
	)
	return ix
}

// Search tokenizes query and ranks passages in partition (whole corpus when empty).
// An unknown partition yields an empty list.
func (ix *Index) Search(ctx context.Context, query, partition string, k int) ([]result.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ix.SearchTokens(Tokenize(query), partition, k), nil
}

// SearchTokens ranks passages for pre-tokenized terms. Ranks are 1-indexed.
func (ix *Index) SearchTokens(terms []string, partition string, k int) []result.Result {
	target := ix.all
	if partition != "" {
		var ok bool
		if target, ok = ix.parts[partition]; !ok {
			return nil
		}
	}

	hits := target.search(terms, k)
	out := make([]result.Result, len(hits))
	for i, h := range hits {
		out[i] = result.New(ix.store.At(h.position).ID(), i+1, h.score)
	}
	return out
}
