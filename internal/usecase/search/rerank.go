package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/candidate"
	"github.com/kailas-cloud/ragdex/internal/domain/stage"
)

func passages(cands []*candidate.Candidate) []domain.Passage {
	out := make([]domain.Passage, len(cands))
	for i, c := range cands {
		out[i] = domain.Passage{ID: c.ID(), Content: c.Document().Content()}
	}
	return out
}

// scoreCrossEncoder attaches a logit to every candidate in one batched call and
// reorders by it. On failure candidates keep the fused order without logits.
func scoreCrossEncoder(
	ctx context.Context, scorer domain.CrossEncoder, query string, cands []*candidate.Candidate,
) stage.Result[[]*candidate.Candidate] {
	if scorer == nil {
		return stage.Skip[[]*candidate.Candidate]("cross-encoder not configured", nil)
	}
	if len(cands) == 0 {
		return stage.Skip[[]*candidate.Candidate]("no candidates", nil)
	}

	scores, err := scorer.Score(ctx, query, passages(cands))
	if err != nil {
		return stage.Skip[[]*candidate.Candidate]("cross-encoder failed", err)
	}
	if len(scores) != len(cands) {
		return stage.Skip[[]*candidate.Candidate]("cross-encoder failed",
			fmt.Errorf("%w: %d scores for %d passages", domain.ErrMalformedResponse, len(scores), len(cands)))
	}

	for i, c := range cands {
		c.SetCrossEncoderScore(scores[i])
	}
	sort.SliceStable(cands, func(i, j int) bool {
		si, _ := cands[i].CrossEncoderScore()
		sj, _ := cands[j].CrossEncoderScore()
		return si > sj
	})
	return stage.Ok(cands)
}

// filterWithLLM rates the shortlist and keeps the topM best rated candidates.
// Ties go to the higher logit, then to the incoming order. Any failure leaves
// the candidates untouched.
func filterWithLLM(
	ctx context.Context, rater domain.Rater, query string, cands []*candidate.Candidate, opts Options,
) stage.Result[[]*candidate.Candidate] {
	if rater == nil {
		return stage.Skip[[]*candidate.Candidate]("llm filter disabled", nil)
	}
	if len(cands) <= opts.LLMFilterMinCandidates {
		return stage.Skip[[]*candidate.Candidate](
			fmt.Sprintf("%d candidates, filter needs more than %d", len(cands), opts.LLMFilterMinCandidates), nil)
	}

	shortlist := cands
	if len(shortlist) > opts.InitialK {
		shortlist = shortlist[:opts.InitialK]
	}

	ratings, err := rater.Rate(ctx, query, passages(shortlist))
	if err != nil {
		return stage.Skip[[]*candidate.Candidate]("llm filter failed", err)
	}

	rated := 0
	for _, c := range shortlist {
		if s, ok := ratings[c.ID()]; ok {
			c.SetLLMScore(s)
			rated++
		}
	}
	if rated == 0 {
		return stage.Skip[[]*candidate.Candidate]("llm filter failed",
			fmt.Errorf("%w: no shortlisted passage was rated", domain.ErrMalformedResponse))
	}

	kept := make([]*candidate.Candidate, len(shortlist))
	copy(kept, shortlist)
	sort.SliceStable(kept, func(i, j int) bool {
		li, oki := kept[i].LLMScore()
		lj, okj := kept[j].LLMScore()
		if oki != okj {
			return oki
		}
		if li != lj {
			return li > lj
		}
		ci, _ := kept[i].CrossEncoderScore()
		cj, _ := kept[j].CrossEncoderScore()
		return ci > cj
	})
	if len(kept) > opts.LLMFilterTopM {
		kept = kept[:opts.LLMFilterTopM]
	}
	return stage.Ok(kept)
}

// integrate computes final scores, drops low-confidence logits and keeps the
// best topN. Without a logit the fused score stands in and nothing is rejected.
func integrate(cands []*candidate.Candidate, opts Options, topN int) []*candidate.Candidate {
	out := make([]*candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		ce, hasCE := c.CrossEncoderScore()
		if !hasCE {
			fused, _ := c.FusedScore()
			c.SetFinalScore(fused)
			out = append(out, c)
			continue
		}
		if ce < opts.ConfidenceThreshold {
			continue
		}
		if llm, ok := c.LLMScore(); ok {
			norm := float64(llm)*opts.LLMScale + opts.LLMOffset
			c.SetFinalScore(ce*opts.CEAlpha + norm*opts.LLMBeta)
		} else {
			c.SetFinalScore(ce)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		fi, _ := out[i].FinalScore()
		fj, _ := out[j].FinalScore()
		return fi > fj
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
