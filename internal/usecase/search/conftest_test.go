package search

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/corpus"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/usecase/entity"
)

// --- Mocks ---

// mockSearcher returns a fixed ranking per partition.
type mockSearcher struct {
	mu         sync.Mutex
	ranking    map[string][]string
	err        error
	calls      int
	partitions []string
}

func (m *mockSearcher) Search(_ context.Context, _, partition string, k int) ([]result.Result, error) {
	m.mu.Lock()
	m.calls++
	m.partitions = append(m.partitions, partition)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := m.ranking[partition]
	if len(ids) > k {
		ids = ids[:k]
	}
	return result.Ranked(ids, nil), nil
}

// mockScorer returns logits by document id.
type mockScorer struct {
	logits map[string]float64
	err    error
	calls  int
}

func (m *mockScorer) Score(_ context.Context, _ string, ps []domain.Passage) ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = m.logits[p.ID]
	}
	return out, nil
}

// mockRater returns ratings by document id.
type mockRater struct {
	ratings map[string]int
	err     error
	calls   int
	seen    int
}

func (m *mockRater) Rate(_ context.Context, _ string, ps []domain.Passage) (map[string]int, error) {
	m.calls++
	m.seen = len(ps)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]int)
	for _, p := range ps {
		if s, ok := m.ratings[p.ID]; ok {
			out[p.ID] = s
		}
	}
	return out, nil
}

// memCache is a map-backed QueryCache.
type memCache struct {
	entries map[string]answer.Result
	puts    int
}

func newMemCache() *memCache { return &memCache{entries: map[string]answer.Result{}} }

func (m *memCache) Get(_ context.Context, query, ent string) (answer.Result, bool) {
	r, ok := m.entries[query+"\x00"+ent]
	if !ok {
		return answer.Result{}, false
	}
	return r.FromCache(), true
}

func (m *memCache) Put(_ context.Context, query, ent string, res answer.Result) {
	if res.IsNoResult() {
		return
	}
	m.puts++
	m.entries[query+"\x00"+ent] = res
}

// fixedEntities resolves every question to the same entity.
type fixedEntities struct {
	res     entity.Resolution
	commits int
}

func (f *fixedEntities) Peek(context.Context, string, string) entity.Resolution { return f.res }

func (f *fixedEntities) Commit(context.Context, string, entity.Resolution) { f.commits++ }

// --- Helpers ---

// newTestStore creates n passages d1..dn with distinct content, split across two areas.
func newTestStore(t *testing.T, n int) *corpus.Store {
	t.Helper()
	docs := make([]document.Document, 0, n)
	for i := 1; i <= n; i++ {
		area := "kusatsu"
		if i%2 == 0 {
			area = "hakone"
		}
		d, err := document.New(fmt.Sprintf("d%d", i), "s", fmt.Sprintf("passage %d about %s", i, area),
			document.Metadata{Area: area})
		if err != nil {
			t.Fatalf("document.New: %v", err)
		}
		docs = append(docs, d)
	}
	st, err := corpus.NewStore(docs, document.PartitionArea)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("d%d", i+1)
	}
	return out
}
