package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

const kusatsuChunks = `[
  {"chunk_id": "k1", "section": "湯畑", "content": "草津温泉の湯畑",
   "metadata": {"source": "guide", "category": ["sightseeing", "night"], "area": "kusatsu", "tags": ["湯畑"]}},
  {"chunk_id": "k2", "section": "泉質", "content": "強酸性の硫黄泉",
   "metadata": {"area": ["kusatsu"], "keywords": ["泉質", "酸性"]}},
  {"section": "空", "content": "   ", "metadata": {}},
  {"section": "番号なし", "content": "IDのないチャンク", "metadata": {"area": null, "category": "food, cafe"}}
]`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParse_ChunkFormat(t *testing.T) {
	docs, err := Parse([]byte(kusatsuChunks), "kusatsu_chunks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents (empty content skipped), got %d", len(docs))
	}

	if docs[0].Category() != "sightseeing" || docs[0].Area() != "kusatsu" {
		t.Errorf("list metadata not normalized: %q/%q", docs[0].Category(), docs[0].Area())
	}
	if !docs[1].HasTag("酸性") {
		t.Errorf("keywords should be used when tags are absent: %v", docs[1].Tags())
	}
	if docs[2].ID() != "kusatsu_chunks-3" {
		t.Errorf("expected generated id, got %q", docs[2].ID())
	}
	if docs[2].Category() != "food" || docs[2].Area() != "" {
		t.Errorf("comma list / null metadata mishandled: %q/%q", docs[2].Category(), docs[2].Area())
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte(`{"chunk_id": "x"}`), "x"); err == nil {
		t.Fatal("expected error for non-array file")
	}
}

func TestLoadFiles_SkipsMissingAndDropsDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "kusatsu_chunks.json", kusatsuChunks)
	b := writeFile(t, dir, "hakone_chunks.json", `[
		{"chunk_id": "k1", "content": "duplicate id", "metadata": {"area": "hakone"}},
		{"chunk_id": "h1", "content": "箱根の大涌谷", "metadata": {"area": "hakone"}}
	]`)

	docs, err := LoadFiles([]string{a, filepath.Join(dir, "missing.json"), b}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}
	if docs[3].ID() != "h1" {
		t.Errorf("expected h1 last, got %q", docs[3].ID())
	}
	if docs[0].Content() != "草津温泉の湯畑" {
		t.Errorf("first occurrence of k1 should win, got %q", docs[0].Content())
	}
}

func TestLoadFiles_NothingLoaded(t *testing.T) {
	_, err := LoadFiles([]string{filepath.Join(t.TempDir(), "none.json")}, zap.NewNop())
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}
