// Package semantic is the in-process vector index: passages are embedded once
// at startup, queries are embedded per request and ranked by cosine similarity.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragdex/internal/corpus"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// maxParallelBatches bounds concurrent embedding requests during Build.
const maxParallelBatches = 4

// Index ranks passages by cosine similarity to the query embedding.
type Index struct {
	store   *corpus.Store
	query   domain.Embedder
	vectors [][]float32 // unit length, indexed by insertion position
	dims    int
}

// Build embeds every passage with documents (batched, bounded concurrency)
// and keeps query for per-request embedding.
func Build(
	ctx context.Context,
	store *corpus.Store,
	documents, query domain.Embedder,
	batchSize int,
	logger *zap.Logger,
) (*Index, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	start := time.Now()
	texts := store.Contents()
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)
	for offset := 0; offset < len(texts); offset += batchSize {
		end := min(offset+batchSize, len(texts))
		g.Go(func() error {
			res, err := domain.EmbedAll(gctx, documents, texts[offset:end])
			if err != nil {
				return fmt.Errorf("embed passages %d-%d: %w", offset, end, err)
			}
			if len(res.Embeddings) != end-offset {
				return fmt.Errorf("embed passages %d-%d: got %d vectors: %w",
					offset, end, len(res.Embeddings), domain.ErrEmbeddingProviderError)
			}
			copy(vectors[offset:end], res.Embeddings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dims := 0
	for i, v := range vectors {
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims || dims == 0 {
			return nil, fmt.Errorf("passage %s: %d dims, expected %d: %w",
				store.At(i).ID(), len(v), dims, domain.ErrVectorDimMismatch)
		}
		vectors[i] = normalize(v)
	}

	logger.Info("Semantic index built",
		zap.Int("documents", len(vectors)),
		zap.Int("dimensions", dims),
		zap.Duration("duration", time.Since(start)),
	)

	return &Index{store: store, query: query, vectors: vectors, dims: dims}, nil
}

// NewFromVectors creates an index from precomputed passage vectors.
func NewFromVectors(store *corpus.Store, query domain.Embedder, vectors [][]float32) (*Index, error) {
	if len(vectors) != store.Len() {
		return nil, fmt.Errorf("got %d vectors for %d passages", len(vectors), store.Len())
	}
	ix := &Index{store: store, query: query, vectors: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if ix.dims == 0 {
			ix.dims = len(v)
		}
		if len(v) != ix.dims {
			return nil, domain.ErrVectorDimMismatch
		}
		ix.vectors[i] = normalize(v)
	}
	return ix, nil
}

// Dimensions returns the vector size.
func (ix *Index) Dimensions() int { return ix.dims }

// Search embeds query and returns the k most similar passages in partition
// (whole corpus when empty). Ties are broken by insertion position.
func (ix *Index) Search(ctx context.Context, query, partition string, k int) ([]result.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	positions := ix.store.Positions(partition)
	if len(positions) == 0 {
		return nil, nil
	}

	emb, err := ix.query.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(emb.Embedding) != ix.dims {
		return nil, fmt.Errorf("query has %d dims, index %d: %w",
			len(emb.Embedding), ix.dims, domain.ErrVectorDimMismatch)
	}
	q := normalize(emb.Embedding)

	type scored struct {
		pos int
		sim float64
	}
	hits := make([]scored, len(positions))
	for i, pos := range positions {
		hits[i] = scored{pos: pos, sim: dot(q, ix.vectors[pos])}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].pos < hits[j].pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]result.Result, len(hits))
	for i, h := range hits {
		out[i] = result.New(ix.store.At(h.pos).ID(), i+1, h.sim)
	}
	return out, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
