// Package candidate holds the per-request record that flows through the
// retrieval stages. A Candidate is never persisted.
package candidate

import "github.com/kailas-cloud/ragdex/internal/domain/document"

// Bounds of the LLM relevance scale.
const (
	MinLLMScore = 0
	MaxLLMScore = 10
)

// Candidate tracks one document through fusion, reranking and integration.
// Every optional score has an explicit presence flag.
type Candidate struct {
	doc   *document.Document
	order int

	semanticRank int // 0 = absent
	keywordRank  int // 0 = absent

	fused    float64
	hasFused bool

	ce    float64
	hasCE bool

	llm    int
	hasLLM bool

	final    float64
	hasFinal bool
}

// New creates a candidate for doc. order is the corpus insertion position.
func New(doc *document.Document, order int) *Candidate {
	return &Candidate{doc: doc, order: order}
}

// Document returns the referenced passage.
func (c *Candidate) Document() *document.Document { return c.doc }

// ID returns the referenced document id.
func (c *Candidate) ID() string { return c.doc.ID() }

// Order returns the corpus insertion position used for deterministic tie-breaks.
func (c *Candidate) Order() int { return c.order }

// SemanticRank returns the 1-indexed semantic rank, if the document was returned by that source.
func (c *Candidate) SemanticRank() (int, bool) { return c.semanticRank, c.semanticRank > 0 }

// KeywordRank returns the 1-indexed keyword rank, if the document was returned by that source.
func (c *Candidate) KeywordRank() (int, bool) { return c.keywordRank, c.keywordRank > 0 }

// SetSemanticRank records rank, keeping the best one if called repeatedly.
func (c *Candidate) SetSemanticRank(rank int) {
	if rank > 0 && (c.semanticRank == 0 || rank < c.semanticRank) {
		c.semanticRank = rank
	}
}

// SetKeywordRank records rank, keeping the best one if called repeatedly.
func (c *Candidate) SetKeywordRank(rank int) {
	if rank > 0 && (c.keywordRank == 0 || rank < c.keywordRank) {
		c.keywordRank = rank
	}
}

// InBoth reports whether both retrieval sources returned the document.
func (c *Candidate) InBoth() bool { return c.semanticRank > 0 && c.keywordRank > 0 }

// FusedScore returns the rank fusion score.
func (c *Candidate) FusedScore() (float64, bool) { return c.fused, c.hasFused }

// SetFusedScore records the rank fusion score.
func (c *Candidate) SetFusedScore(s float64) { c.fused, c.hasFused = s, true }

// CrossEncoderScore returns the cross-encoder logit.
func (c *Candidate) CrossEncoderScore() (float64, bool) { return c.ce, c.hasCE }

// SetCrossEncoderScore records the cross-encoder logit.
func (c *Candidate) SetCrossEncoderScore(s float64) { c.ce, c.hasCE = s, true }

// LLMScore returns the 0..10 relevance assigned by the language model.
func (c *Candidate) LLMScore() (int, bool) { return c.llm, c.hasLLM }

// SetLLMScore records the model score clamped to 0..10.
func (c *Candidate) SetLLMScore(s int) {
	if s < MinLLMScore {
		s = MinLLMScore
	}
	if s > MaxLLMScore {
		s = MaxLLMScore
	}
	c.llm, c.hasLLM = s, true
}

// ClearLLMScore drops a model score, used when the filter stage is abandoned.
func (c *Candidate) ClearLLMScore() { c.llm, c.hasLLM = 0, false }

// FinalScore returns the integrated score.
func (c *Candidate) FinalScore() (float64, bool) { return c.final, c.hasFinal }

// SetFinalScore records the integrated score.
func (c *Candidate) SetFinalScore(s float64) { c.final, c.hasFinal = s, true }
