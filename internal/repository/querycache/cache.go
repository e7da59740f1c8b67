// Package querycache memoizes final retrieval results per (question, entity).
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// sharedStore is the consumer interface of the optional Redis tier.
type sharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// documentLookup resolves cached document ids against the live corpus.
type documentLookup interface {
	Lookup(ids []string) ([]document.Document, error)
}

// Options configures the cache.
type Options struct {
	Capacity  int
	TTL       time.Duration
	KeyPrefix string           // Redis key prefix, e.g. "ragdex:"
	Now       func() time.Time // test clock; defaults to time.Now
}

// Cache is an in-process LRU with an optional shared Redis tier.
type Cache struct {
	l1     *lru
	shared sharedStore
	docs   documentLookup
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New creates an in-process cache.
func New(opts Options, logger *zap.Logger) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		l1:     newLRU(opts.Capacity, opts.TTL, now),
		prefix: opts.KeyPrefix + "qcache:",
		ttl:    opts.TTL,
		now:    now,
		logger: logger,
	}
}

// WithShared adds a Redis tier. Entries there hold document ids and are
// rehydrated from docs on read.
func (c *Cache) WithShared(s sharedStore, docs documentLookup) *Cache {
	c.shared = s
	c.docs = docs
	return c
}

// Get returns a cached result marked as served from cache.
func (c *Cache) Get(ctx context.Context, query, entity string) (answer.Result, bool) {
	key := Key(query, entity)

	res, ok, expired := c.l1.get(key)
	switch {
	case ok:
		metrics.QueryCacheTotal.WithLabelValues("memory", "hit").Inc()
		return res.FromCache(), true
	case expired:
		metrics.QueryCacheTotal.WithLabelValues("memory", "expired").Inc()
	default:
		metrics.QueryCacheTotal.WithLabelValues("memory", "miss").Inc()
	}

	if c.shared == nil {
		return answer.Result{}, false
	}
	res, insertedAt, ok := c.getShared(ctx, key)
	if !ok {
		return answer.Result{}, false
	}
	c.l1.putAt(key, res, insertedAt)
	return res.FromCache(), true
}

// Put stores a successful result; NoResult is never cached.
func (c *Cache) Put(ctx context.Context, query, entity string, res answer.Result) {
	if res.IsNoResult() {
		return
	}
	key := Key(query, entity)
	c.l1.put(key, res)

	if c.shared != nil {
		c.putShared(ctx, key, res)
	}
}

// Len returns the number of in-process entries, expired ones included.
func (c *Cache) Len() int { return c.l1.len() }

type sharedHit struct {
	ID                string  `json:"id"`
	FinalScore        float64 `json:"final"`
	CrossEncoderScore float64 `json:"ce"`
	LLMScore          *int    `json:"llm,omitempty"`
}

type sharedEntry struct {
	Entity     string      `json:"entity,omitempty"`
	InsertedAt time.Time   `json:"inserted_at"`
	Hits       []sharedHit `json:"hits"`
}

func (c *Cache) getShared(ctx context.Context, key string) (answer.Result, time.Time, bool) {
	data, err := c.shared.Get(ctx, c.prefix+key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			metrics.QueryCacheTotal.WithLabelValues("redis", "miss").Inc()
		} else {
			metrics.QueryCacheTotal.WithLabelValues("redis", "error").Inc()
			c.logger.Warn("Query cache read failed", zap.Error(err))
		}
		return answer.Result{}, time.Time{}, false
	}

	res, insertedAt, err := c.decode(data)
	if err != nil {
		metrics.QueryCacheTotal.WithLabelValues("redis", "error").Inc()
		c.logger.Warn("Query cache entry unusable", zap.Error(err))
		return answer.Result{}, time.Time{}, false
	}
	if c.now().Sub(insertedAt) >= c.ttl {
		metrics.QueryCacheTotal.WithLabelValues("redis", "expired").Inc()
		return answer.Result{}, time.Time{}, false
	}
	metrics.QueryCacheTotal.WithLabelValues("redis", "hit").Inc()
	return res, insertedAt, true
}

func (c *Cache) decode(data []byte) (answer.Result, time.Time, error) {
	var se sharedEntry
	if err := json.Unmarshal(data, &se); err != nil {
		return answer.Result{}, time.Time{}, fmt.Errorf("decode: %w", err)
	}
	ids := make([]string, len(se.Hits))
	for i, h := range se.Hits {
		ids[i] = h.ID
	}
	docs, err := c.docs.Lookup(ids)
	if err != nil {
		return answer.Result{}, time.Time{}, fmt.Errorf("rehydrate: %w", err)
	}
	hits := make([]answer.Hit, len(docs))
	for i, d := range docs {
		hits[i] = answer.Hit{
			Document:          d,
			FinalScore:        se.Hits[i].FinalScore,
			CrossEncoderScore: se.Hits[i].CrossEncoderScore,
			LLMScore:          se.Hits[i].LLMScore,
		}
	}
	res := answer.Found(hits, se.Entity)
	if res.IsNoResult() {
		return answer.Result{}, time.Time{}, errors.New("empty entry")
	}
	return res, se.InsertedAt, nil
}

// putShared uses SET NX: the first replica to finish a computation wins and
// later identical results are not rewritten.
func (c *Cache) putShared(ctx context.Context, key string, res answer.Result) {
	se := sharedEntry{Entity: res.Entity(), InsertedAt: c.now()}
	for _, h := range res.Hits() {
		se.Hits = append(se.Hits, sharedHit{
			ID:                h.Document.ID(),
			FinalScore:        h.FinalScore,
			CrossEncoderScore: h.CrossEncoderScore,
			LLMScore:          h.LLMScore,
		})
	}
	data, err := json.Marshal(se)
	if err != nil {
		c.logger.Warn("Query cache encode failed", zap.Error(err))
		return
	}
	if _, err := c.shared.SetNX(ctx, c.prefix+key, data, c.ttl); err != nil {
		c.logger.Warn("Query cache write failed", zap.Error(err))
	}
}
