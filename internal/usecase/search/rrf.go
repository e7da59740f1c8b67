package search

import (
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain/candidate"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// fuseRRF merges the semantic and keyword rankings with weighted Reciprocal Rank Fusion:
// fused(d) = w/(k + rank_sem(d)) + (1-w)/(k + rank_kw(d)), a missing list contributing 0.
// Ties go to documents found by both sources, then to corpus order.
// Hits unknown to docs are dropped.
func fuseRRF(docs DocumentStore, semantic, keyword []result.Result, w float64, k int) []*candidate.Candidate {
	merged := make(map[string]*candidate.Candidate, len(semantic)+len(keyword))
	out := make([]*candidate.Candidate, 0, len(semantic)+len(keyword))

	add := func(r result.Result, setRank func(*candidate.Candidate, int)) {
		c, ok := merged[r.ID()]
		if !ok {
			doc, order, found := docs.Get(r.ID())
			if !found {
				return
			}
			c = candidate.New(doc, order)
			merged[r.ID()] = c
			out = append(out, c)
		}
		setRank(c, r.Rank())
	}

	for _, r := range semantic {
		add(r, (*candidate.Candidate).SetSemanticRank)
	}
	for _, r := range keyword {
		add(r, (*candidate.Candidate).SetKeywordRank)
	}

	for _, c := range out {
		var score float64
		if rank, ok := c.SemanticRank(); ok {
			score += w / float64(k+rank)
		}
		if rank, ok := c.KeywordRank(); ok {
			score += (1 - w) / float64(k+rank)
		}
		c.SetFusedScore(score)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, _ := out[i].FusedScore()
		sj, _ := out[j].FusedScore()
		if si != sj {
			return si > sj
		}
		if out[i].InBoth() != out[j].InBoth() {
			return out[i].InBoth()
		}
		return out[i].Order() < out[j].Order()
	})

	return out
}

// dedupByPrefix collapses candidates whose content starts with the same n
// characters, keeping the first (better ranked) one.
func dedupByPrefix(cands []*candidate.Candidate, n int) []*candidate.Candidate {
	if n <= 0 {
		return cands
	}
	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		p := c.Document().Prefix(n)
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, c)
	}
	return out
}
