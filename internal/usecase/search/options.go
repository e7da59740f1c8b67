package search

// Options are the pipeline tunables.
type Options struct {
	SemanticWeight         float64
	RRFK                   int
	InitialK               int
	LLMFilterMinCandidates int
	LLMFilterTopM          int
	CEAlpha                float64
	LLMBeta                float64
	LLMScale               float64
	LLMOffset              float64
	ConfidenceThreshold    float64
	FinalTopN              int
	DedupPrefixChars       int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		SemanticWeight:         0.5,
		RRFK:                   60,
		InitialK:               20,
		LLMFilterMinCandidates: 6,
		LLMFilterTopM:          5,
		CEAlpha:                0.4,
		LLMBeta:                0.6,
		LLMScale:               2.0,
		LLMOffset:              -10.0,
		ConfidenceThreshold:    -3.0,
		FinalTopN:              3,
		DedupPrefixChars:       100,
	}
}
