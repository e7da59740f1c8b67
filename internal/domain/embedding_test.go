package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	s.got = append(s.got, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.result.Embedding
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "草津温泉の泉質")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got[0] != "query: 草津温泉の泉質" {
		t.Errorf("expected prepended text, got %q", inner.got[0])
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "text")
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestEmbedAll_UsesBatchWhenAvailable(t *testing.T) {
	inner := &stubBatchEmbedder{stubEmbedder: stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}}

	res, err := EmbedAll(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
}

func TestEmbedAll_FallsBackToSingle(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}, TotalTokens: 2}}

	res, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 2 {
		t.Errorf("expected 2 single calls, got %d", len(inner.got))
	}
	if res.TotalTokens != 4 {
		t.Errorf("expected 4 total tokens, got %d", res.TotalTokens)
	}
}

func TestInstructionEmbedder_BatchPrefixesEveryText(t *testing.T) {
	inner := &stubBatchEmbedder{stubEmbedder: stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}}
	emb := NewInstructionEmbedder(inner, "passage: ")

	if _, err := emb.BatchEmbed(context.Background(), []string{"x", "y"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got[0] != "passage: x" || inner.got[1] != "passage: y" {
		t.Errorf("unexpected texts: %v", inner.got)
	}
}

func TestNewRetrievalError(t *testing.T) {
	cause := errors.New("timeout")
	err := NewRetrievalError("keyword", cause)

	if !errors.Is(err, ErrRetrieval) {
		t.Error("expected ErrRetrieval")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be preserved")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "keyword" {
		t.Errorf("expected StageError for keyword, got %v", err)
	}
}
