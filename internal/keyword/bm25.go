package keyword

import (
	"math"
	"sort"
)

// Okapi BM25 parameters.
const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

type posting struct {
	doc int // local document slot
	tf  int
}

// bm25 is an immutable inverted index over one set of passages.
type bm25 struct {
	positions []int // local slot -> corpus insertion position
	docLen    []int
	avgLen    float64
	postings  map[string][]posting
	k1, b     float64
}

func newBM25(positions []int, tokenized [][]string) *bm25 {
	ix := &bm25{
		positions: positions,
		docLen:    make([]int, len(tokenized)),
		postings:  make(map[string][]posting),
		k1:        defaultK1,
		b:         defaultB,
	}

	var total int
	for slot, toks := range tokenized {
		ix.docLen[slot] = len(toks)
		total += len(toks)

		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for term, n := range tf {
			ix.postings[term] = append(ix.postings[term], posting{doc: slot, tf: n})
		}
	}
	if len(tokenized) > 0 {
		ix.avgLen = float64(total) / float64(len(tokenized))
	}
	return ix
}

// hit is a scored match expressed as a corpus insertion position.
type hit struct {
	position int
	score    float64
}

// search scores every passage sharing a term with the query and returns the
// top k by score, ties broken by insertion position.
func (ix *bm25) search(terms []string, k int) []hit {
	n := float64(len(ix.docLen))
	if n == 0 || k <= 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range terms {
		plist := ix.postings[term]
		if len(plist) == 0 {
			continue
		}
		df := float64(len(plist))
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		for _, p := range plist {
			tf := float64(p.tf)
			norm := 1 - ix.b + ix.b*float64(ix.docLen[p.doc])/ix.avgLen
			scores[p.doc] += idf * (tf * (ix.k1 + 1)) / (tf + ix.k1*norm)
		}
	}

	hits := make([]hit, 0, len(scores))
	for slot, s := range scores {
		if s > 0 {
			hits = append(hits, hit{position: ix.positions[slot], score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].position < hits[j].position
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
