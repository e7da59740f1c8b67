package domain

import "context"

// Passage is the (id, text) pair sent to a remote scorer.
type Passage struct {
	ID      string
	Content string
}

// CrossEncoder scores (query, passage) pairs in one batched call.
// Scores are raw logits aligned with the input order.
type CrossEncoder interface {
	Score(ctx context.Context, query string, passages []Passage) ([]float64, error)
}

// Rater asks a language model to rate passages 0..10 against a question.
// Passages the model did not rate are absent from the returned map.
type Rater interface {
	Rate(ctx context.Context, question string, passages []Passage) (map[string]int, error)
}
