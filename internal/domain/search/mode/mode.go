package mode

// Mode is the retrieval strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses semantic and keyword search.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// All lists the modes in comparison order.
var All = []Mode{Keyword, Semantic, Hybrid}

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// UsesSemantic reports whether the mode queries the semantic index.
func (m Mode) UsesSemantic() bool { return m == Hybrid || m == Semantic }

// UsesKeyword reports whether the mode queries the keyword index.
func (m Mode) UsesKeyword() bool { return m == Hybrid || m == Keyword }
