// Package search runs the hybrid retrieval and rerank pipeline.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/candidate"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/domain/stage"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/usecase/entity"
)

// Deps are the collaborators of the pipeline. Rater, Cache and Entities are optional.
type Deps struct {
	Docs     DocumentStore
	Keyword  Searcher
	Semantic Searcher
	Scorer   domain.CrossEncoder
	Rater    domain.Rater
	Cache    QueryCache
	Entities EntityResolver
}

// Service answers questions with the passages most likely to contain the answer.
type Service struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New creates a search service.
func New(deps Deps, opts Options, logger *zap.Logger) *Service {
	return &Service{deps: deps, opts: opts, logger: logger}
}

// Comparison is the ranking one retrieval mode produces on its own.
type Comparison struct {
	Mode mode.Mode
	Hits []answer.Hit
}

// Query runs the full pipeline for a conversation turn: cache, entity scoping,
// parallel retrieval, fusion, reranking, confidence filtering.
// NoResult is a normal outcome. Only retrieval failures return an error.
func (s *Service) Query(ctx context.Context, req *request.Request) (answer.Result, error) {
	var tr stage.Trace
	question, sessionID := req.Question(), req.SessionID()
	log := logger.FromContext(ctx)

	start := time.Now()
	res := s.peekEntity(ctx, sessionID, question)
	if s.deps.Cache != nil {
		if hit, ok := s.deps.Cache.Get(ctx, question, res.Entity); ok {
			s.record(&tr, stage.CacheCheck, stage.OK, start, "hit")
			s.commitEntity(ctx, sessionID, res)
			s.record(&tr, stage.Done, stage.OK, time.Now(), "")
			metrics.QueriesTotal.WithLabelValues("cached").Inc()
			return hit.WithTrace(tr.Steps()), nil
		}
		s.record(&tr, stage.CacheCheck, stage.OK, start, "miss")
	} else {
		s.record(&tr, stage.CacheCheck, stage.Skipped, start, "no cache")
	}

	start = time.Now()
	s.commitEntity(ctx, sessionID, res)
	partition := s.partitionFor(ctx, res.Entity)
	s.record(&tr, stage.EntityResolve, stage.OK, start, fmt.Sprintf("%s:%s", res.Source, res.Entity))

	selected, err := s.run(ctx, question, partition, mode.Hybrid, s.opts.FinalTopN, &tr)
	if err != nil {
		s.record(&tr, stage.Error, stage.Fatal, time.Now(), err.Error())
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return answer.Result{}, err
	}

	out := answer.Found(toHits(selected), res.Entity)
	if out.IsNoResult() {
		s.record(&tr, stage.NoResult, stage.OK, time.Now(), "")
		metrics.QueriesTotal.WithLabelValues(string(answer.StatusNoResult)).Inc()
		log.Debug("No passage passed the confidence filter", zap.String("entity", res.Entity))
		return out.WithTrace(tr.Steps()), nil
	}

	start = time.Now()
	if s.deps.Cache != nil {
		s.deps.Cache.Put(ctx, question, res.Entity, out)
		s.record(&tr, stage.CacheWrite, stage.OK, start, "")
	} else {
		s.record(&tr, stage.CacheWrite, stage.Skipped, start, "no cache")
	}
	s.record(&tr, stage.Done, stage.OK, time.Now(), "")
	metrics.QueriesTotal.WithLabelValues(string(answer.StatusOK)).Inc()

	return out.WithTrace(tr.Steps()), nil
}

// SearchOnly runs retrieval and reranking in the requested mode without the
// query cache or session state. At most req.Limit() hits are returned.
func (s *Service) SearchOnly(ctx context.Context, req *request.Request) (answer.Result, error) {
	var tr stage.Trace
	res := s.peekEntity(ctx, "", req.Question())
	partition := s.partitionFor(ctx, res.Entity)

	selected, err := s.run(ctx, req.Question(), partition, req.Mode(), req.Limit(), &tr)
	if err != nil {
		return answer.Result{}, err
	}
	return answer.Found(toHits(selected), res.Entity).WithTrace(tr.Steps()), nil
}

// Compare returns the fused ranking of every retrieval mode side by side,
// before any reranking.
func (s *Service) Compare(ctx context.Context, req *request.Request) ([]Comparison, error) {
	res := s.peekEntity(ctx, "", req.Question())
	partition := s.partitionFor(ctx, res.Entity)

	out := make([]Comparison, 0, len(mode.All))
	for _, m := range mode.All {
		cands, err := s.retrieve(ctx, req.Question(), partition, m)
		if err != nil {
			return nil, err
		}
		if len(cands) > req.Limit() {
			cands = cands[:req.Limit()]
		}
		hits := make([]answer.Hit, len(cands))
		for i, c := range cands {
			fused, _ := c.FusedScore()
			hits[i] = answer.Hit{Document: *c.Document(), FinalScore: fused}
		}
		out = append(out, Comparison{Mode: m, Hits: hits})
	}
	return out, nil
}

func (s *Service) run(
	ctx context.Context, question, partition string, m mode.Mode, topN int, tr *stage.Trace,
) ([]*candidate.Candidate, error) {
	log := logger.FromContext(ctx)

	start := time.Now()
	semantic, keyword, err := s.searchSources(ctx, question, partition, m)
	if err != nil {
		s.record(tr, stage.ParallelSearch, stage.Fatal, start, err.Error())
		return nil, err
	}
	s.record(tr, stage.ParallelSearch, stage.OK, start,
		fmt.Sprintf("semantic=%d keyword=%d", len(semantic), len(keyword)))

	start = time.Now()
	cands := s.fuse(semantic, keyword, m)
	s.record(tr, stage.Fuse, stage.OK, start, fmt.Sprintf("candidates=%d", len(cands)))

	start = time.Now()
	ce := scoreCrossEncoder(ctx, s.deps.Scorer, question, cands)
	s.record(tr, stage.CEScore, ce.Outcome(), start, ce.Reason())
	if ce.IsOK() {
		cands = ce.Value()
	} else if ce.Err() != nil {
		log.Warn("Cross-encoder stage skipped", zap.String("reason", ce.Reason()), zap.Error(ce.Err()))
	}

	start = time.Now()
	llm := filterWithLLM(ctx, s.deps.Rater, question, cands, s.opts)
	s.record(tr, stage.LLMFilter, llm.Outcome(), start, llm.Reason())
	if llm.IsOK() {
		cands = llm.Value()
	} else if llm.Err() != nil {
		log.Warn("LLM filter skipped", zap.String("reason", llm.Reason()), zap.Error(llm.Err()))
	}

	start = time.Now()
	selected := integrate(cands, s.opts, topN)
	s.record(tr, stage.IntegrateFilter, stage.OK, start,
		fmt.Sprintf("in=%d out=%d", len(cands), len(selected)))

	return selected, nil
}

func (s *Service) retrieve(
	ctx context.Context, question, partition string, m mode.Mode,
) ([]*candidate.Candidate, error) {
	semantic, keyword, err := s.searchSources(ctx, question, partition, m)
	if err != nil {
		return nil, err
	}
	return s.fuse(semantic, keyword, m), nil
}

// searchSources queries the sources m uses concurrently. Either failure fails the request.
func (s *Service) searchSources(
	ctx context.Context, question, partition string, m mode.Mode,
) (semantic, keyword []result.Result, err error) {
	g, gctx := errgroup.WithContext(ctx)
	k := s.opts.InitialK

	if m.UsesSemantic() {
		g.Go(func() error {
			hits, err := s.deps.Semantic.Search(gctx, question, partition, k)
			if err != nil {
				return domain.NewRetrievalError("semantic", err)
			}
			semantic = hits
			return nil
		})
	}
	if m.UsesKeyword() {
		g.Go(func() error {
			hits, err := s.deps.Keyword.Search(gctx, question, partition, k)
			if err != nil {
				return domain.NewRetrievalError("keyword", err)
			}
			keyword = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return semantic, keyword, nil
}

func (s *Service) fuse(semantic, keyword []result.Result, m mode.Mode) []*candidate.Candidate {
	w := s.opts.SemanticWeight
	switch m {
	case mode.Semantic:
		w = 1
	case mode.Keyword:
		w = 0
	}
	cands := dedupByPrefix(fuseRRF(s.deps.Docs, semantic, keyword, w, s.opts.RRFK), s.opts.DedupPrefixChars)
	if len(cands) > s.opts.InitialK {
		cands = cands[:s.opts.InitialK]
	}
	return cands
}

func (s *Service) peekEntity(ctx context.Context, sessionID, question string) entity.Resolution {
	if s.deps.Entities == nil {
		return entity.Resolution{Source: entity.SourceNone}
	}
	return s.deps.Entities.Peek(ctx, sessionID, question)
}

func (s *Service) commitEntity(ctx context.Context, sessionID string, r entity.Resolution) {
	if s.deps.Entities != nil {
		s.deps.Entities.Commit(ctx, sessionID, r)
	}
}

// partitionFor maps an entity to a corpus partition. Entities the corpus has
// no passages for search the whole corpus.
func (s *Service) partitionFor(ctx context.Context, name string) string {
	if name == "" {
		return ""
	}
	if !s.deps.Docs.HasPartition(name) {
		logger.FromContext(ctx).Debug("Entity has no corpus partition, searching everything",
			zap.String("entity", name))
		return ""
	}
	return name
}

func (s *Service) record(tr *stage.Trace, st stage.State, o stage.Outcome, start time.Time, detail string) {
	d := time.Since(start)
	tr.Record(st, o, d, detail)
	metrics.StageOutcomesTotal.WithLabelValues(string(st), string(o)).Inc()
	metrics.StageDuration.WithLabelValues(string(st)).Observe(d.Seconds())
}

func toHits(cands []*candidate.Candidate) []answer.Hit {
	hits := make([]answer.Hit, len(cands))
	for i, c := range cands {
		final, _ := c.FinalScore()
		ce, _ := c.CrossEncoderScore()
		h := answer.Hit{Document: *c.Document(), FinalScore: final, CrossEncoderScore: ce}
		if llm, ok := c.LLMScore(); ok {
			h.LLMScore = &llm
		}
		hits[i] = h
	}
	return hits
}
