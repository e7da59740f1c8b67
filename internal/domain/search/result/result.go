package result

// Result is a single ranked hit from one retrieval source.
type Result struct {
	id    string
	rank  int
	score float64
}

// New creates a hit. rank is 1-indexed.
func New(id string, rank int, score float64) Result {
	return Result{id: id, rank: rank, score: score}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Rank returns the 1-indexed position in its source list.
func (r *Result) Rank() int { return r.rank }

// Score returns the source-native relevance (BM25 score or cosine similarity).
func (r *Result) Score() float64 { return r.score }

// Ranked assigns 1-indexed ranks following slice order.
func Ranked(ids []string, scores []float64) []Result {
	out := make([]Result, len(ids))
	for i, id := range ids {
		var s float64
		if i < len(scores) {
			s = scores[i]
		}
		out[i] = New(id, i+1, s)
	}
	return out
}
