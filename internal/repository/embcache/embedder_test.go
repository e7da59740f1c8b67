package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5, -1}, TotalTokens: 7}}
	ce, kv := newTestCachedEmbedder(t, inner, 0)

	first, err := ce.Embed(context.Background(), "草津温泉")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should report inner tokens, got %d", first.TotalTokens)
	}

	second, err := ce.Embed(context.Background(), "草津温泉")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected one inner call, got %d", inner.calls)
	}
	if second.TotalTokens != 0 || len(second.Embedding) != 2 || second.Embedding[1] != -1 {
		t.Errorf("unexpected cached result %+v", second)
	}
	for k := range kv.data {
		if !strings.HasPrefix(k, "ragdex:emb:test-model:") {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	ce, kv := newTestCachedEmbedder(t, inner, 0)

	if _, err := ce.Embed(context.Background(), "x"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(kv.data) != 0 {
		t.Error("failed embedding must not be cached")
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, kv := newTestCachedEmbedder(t, inner, 0)
	kv.getErr = errors.New("redis down")

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("store failure must not fail Embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner call, got %d", inner.calls)
	}
}

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{}
	ce, kv := newTestCachedEmbedder(t, inner, time.Hour)

	if _, err := ce.BatchEmbed(context.Background(), []string{"aa", "bbbb"}); err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}

	res, err := ce.BatchEmbed(context.Background(), []string{"c", "aa", "ddd", "bbbb"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	want := []float32{1, 2, 3, 4}
	for i, w := range want {
		if res.Embeddings[i][0] != w {
			t.Errorf("embeddings[%d] = %v, want %v", i, res.Embeddings[i], w)
		}
	}
	if len(inner.batchSeen) != 2 || len(inner.batchSeen[1]) != 2 ||
		inner.batchSeen[1][0] != "c" || inner.batchSeen[1][1] != "ddd" {
		t.Errorf("only misses should reach the provider, saw %v", inner.batchSeen)
	}
	if res.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want 2", res.TotalTokens)
	}
	for k, ttl := range kv.ttls {
		if ttl != time.Hour {
			t.Errorf("key %s stored with ttl %v", k, ttl)
		}
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner, 0)

	texts := []string{"x", "yy"}
	if _, err := ce.BatchEmbed(context.Background(), texts); err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	res, err := ce.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected a single provider call, got %d", inner.batchCalls)
	}
	if res.TotalTokens != 0 || len(res.Embeddings) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: domain.ErrRateLimited}
	ce, _ := newTestCachedEmbedder(t, inner, 0)

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner, 0)

	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil || inner.batchCalls != 0 {
		t.Errorf("unexpected %+v, %v, calls=%d", res, err, inner.batchCalls)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0, -2.5, 3.25}
	got, err := bytesToVector(vectorToCacheBytes(vec))
	if err != nil {
		t.Fatalf("bytesToVector: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("got[%d] = %v", i, got[i])
		}
	}
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated data")
	}
}
