// Package app wires the retrieval pipeline from configuration. It is shared by
// the API server and the evaluation tool.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/corpus"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/keyword"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	"github.com/kailas-cloud/ragdex/internal/repository/querycache"
	sessionrepo "github.com/kailas-cloud/ragdex/internal/repository/session"
	"github.com/kailas-cloud/ragdex/internal/resilience"
	"github.com/kailas-cloud/ragdex/internal/semantic"
	"github.com/kailas-cloud/ragdex/internal/transport/crossencoder"
	openaiTransport "github.com/kailas-cloud/ragdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	"github.com/kailas-cloud/ragdex/internal/usecase/entity"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// App is the assembled pipeline.
type App struct {
	Search *searchuc.Service
	Health *healthuc.Service
	Corpus *corpus.Store

	store *dbRedis.Store
}

// Close releases the Redis connection, if any.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// Build loads the corpus, embeds it and assembles every collaborator.
// Redis is used for caches and sessions only when configured.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &App{}
	health := healthuc.New(logger)

	if cfg.Redis.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
		a.store = store
		health.Register(healthuc.ComponentRedis, healthuc.CheckerFunc(store.Ping))
	}

	docs, err := corpus.LoadFiles(cfg.Corpus.Paths, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	st, err := corpus.NewStore(docs, cfg.Corpus.PartitionKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("index corpus: %w", err)
	}
	a.Corpus = st
	logger.Info("Corpus loaded",
		zap.Int("documents", st.Len()),
		zap.String("partition_key", st.PartitionKey()),
		zap.Strings("partitions", st.Partitions()),
	)

	exec := resilience.NewExecutor(ResilienceConfig(cfg.Resilience), logger)

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Executor:   exec,
		Logger:     logger,
	})
	docEmbedder := a.buildEmbedder(base, cfg, cfg.Embedding.DocumentInstruction, logger)
	queryEmbedder := a.buildEmbedder(base, cfg, cfg.Embedding.QueryInstruction, logger)
	health.Register(healthuc.ComponentEmbedding, base)

	kw := keyword.Build(st, logger)
	sem, err := semantic.Build(ctx, st, docEmbedder, queryEmbedder, cfg.Embedding.BatchSize, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build semantic index: %w", err)
	}

	scorer := crossencoder.New(crossencoder.Config{
		BaseURL:  cfg.CrossEncoder.BaseURL,
		APIKey:   cfg.CrossEncoder.APIKey,
		Model:    cfg.CrossEncoder.Model,
		Timeout:  time.Duration(cfg.CrossEncoder.TimeoutSec) * time.Second,
		Executor: exec,
		Logger:   logger,
	})
	health.Register(healthuc.ComponentCrossEncoder, scorer)

	// Pass a nil interface, not a typed nil pointer, when the filter is off.
	var rater domain.Rater
	if cfg.LLM.Enabled {
		r := openaiTransport.NewRater(&openaiTransport.RaterConfig{
			Config: openaiTransport.Config{
				APIKey:     cfg.LLM.APIKey,
				BaseURL:    cfg.LLM.BaseURL,
				Model:      cfg.LLM.Model,
				Provider:   cfg.LLM.Provider,
				HTTPClient: &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second},
				Executor:   exec,
				Logger:     logger,
			},
			Temperature:     cfg.LLM.Temperature,
			MaxPassageChars: cfg.LLM.MaxPassageChars,
		})
		rater = r
		health.Register(healthuc.ComponentLLM, r)
	}

	cache := querycache.New(querycache.Options{
		Capacity:  cfg.Retrieval.CacheCapacity,
		TTL:       time.Duration(cfg.Retrieval.CacheTTLSeconds) * time.Second,
		KeyPrefix: cfg.Redis.KeyPrefix,
	}, logger)

	var sessions entity.SessionStore = sessionrepo.NewMemory()
	if a.store != nil {
		cache.WithShared(a.store, st)
		sessions = sessionrepo.NewRedis(a.store, cfg.Redis.KeyPrefix,
			time.Duration(cfg.Session.IdleTTLHours)*time.Hour)
	}

	vocab, err := entity.NewVocabulary(Terms(cfg.Entities))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("entity vocabulary: %w", err)
	}

	a.Search = searchuc.New(searchuc.Deps{
		Docs:     st,
		Keyword:  kw,
		Semantic: sem,
		Scorer:   scorer,
		Rater:    rater,
		Cache:    cache,
		Entities: entity.NewFilter(vocab, sessions, logger),
	}, RetrievalOptions(cfg.Retrieval), logger)
	a.Health = health

	logger.Info("Pipeline ready",
		zap.Int("dimensions", sem.Dimensions()),
		zap.Bool("llm_filter", rater != nil),
		zap.Bool("shared_store", a.store != nil),
	)
	return a, nil
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented -> instruction.
func (a *App) buildEmbedder(
	base *openaiTransport.Embedder, cfg config.Config, instruction string, logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if a.store != nil {
		embedder = embcache.New(base, a.store, embcache.Options{
			KeyPrefix: cfg.Redis.KeyPrefix,
			Namespace: cfg.Embedding.Model + ":" + strconv.Itoa(cfg.Embedding.Dimensions),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// ResilienceConfig converts the YAML settings.
func ResilienceConfig(c config.ResilienceConfig) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    c.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(c.RetryInitialBackoffMs) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(c.RetryMaxBackoffMs) * time.Millisecond,
		RetryMultiplier:     c.RetryMultiplier,
		AttemptTimeout:      time.Duration(c.AttemptTimeoutSec) * time.Second,
		BreakerEnabled:      !c.BreakerDisabled,
		BreakerMinRequests:  c.BreakerMinRequests,
		BreakerFailureRatio: c.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(c.BreakerOpenTimeoutSec) * time.Second,
	}
}

// RetrievalOptions converts the YAML pipeline tunables.
func RetrievalOptions(c config.RetrievalConfig) searchuc.Options {
	return searchuc.Options{
		SemanticWeight:         c.SemanticWeight,
		RRFK:                   c.RRFK,
		InitialK:               c.InitialK,
		LLMFilterMinCandidates: c.LLMFilterMinCandidates,
		LLMFilterTopM:          c.LLMFilterTopM,
		CEAlpha:                c.CEAlpha,
		LLMBeta:                c.LLMBeta,
		LLMScale:               c.LLMScale,
		LLMOffset:              c.LLMOffset,
		ConfidenceThreshold:    c.ConfidenceThreshold,
		FinalTopN:              c.FinalTopN,
		DedupPrefixChars:       c.DedupPrefixChars,
	}
}

// Terms converts the configured entity vocabulary.
func Terms(entities []config.EntityConfig) []entity.Term {
	out := make([]entity.Term, len(entities))
	for i, e := range entities {
		out[i] = entity.Term{Name: e.Name, Aliases: e.Aliases}
	}
	return out
}
