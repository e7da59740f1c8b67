package entity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/session"
)

// Source tells where a resolved entity came from.
type Source string

// Resolution sources.
const (
	SourceQuery   Source = "query"
	SourceContext Source = "context"
	SourceNone    Source = "none"
)

// Resolution is the entity scoping one request.
type Resolution struct {
	Entity string
	Source Source
}

// Filter combines vocabulary detection with per-session context.
type Filter struct {
	vocab    *Vocabulary
	sessions SessionStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewFilter creates a Filter. sessions may be nil for stateless use.
func NewFilter(vocab *Vocabulary, sessions SessionStore, logger *zap.Logger) *Filter {
	return &Filter{vocab: vocab, sessions: sessions, now: time.Now, logger: logger}
}

// Peek resolves the entity without touching session state: the entity named
// in query, else the session's last entity, else none. A failing session store
// is logged and treated as no context.
func (f *Filter) Peek(ctx context.Context, sessionID, query string) Resolution {
	if name, ok := f.vocab.Detect(query); ok {
		return Resolution{Entity: name, Source: SourceQuery}
	}
	if f.sessions == nil || sessionID == "" {
		return Resolution{Source: SourceNone}
	}

	st, ok, err := f.sessions.Get(ctx, sessionID)
	if err != nil {
		f.logger.Warn("Session lookup failed, ignoring context",
			zap.String("session_id", sessionID), zap.Error(err))
		return Resolution{Source: SourceNone}
	}
	if ok && st.HasEntity() {
		return Resolution{Entity: st.LastEntity, Source: SourceContext}
	}
	return Resolution{Source: SourceNone}
}

// Commit records r as the session's last entity when it was detected in the
// query itself. Context and empty resolutions leave state untouched.
func (f *Filter) Commit(ctx context.Context, sessionID string, r Resolution) {
	if r.Source != SourceQuery || f.sessions == nil || sessionID == "" {
		return
	}
	st := session.State{SessionID: sessionID, LastEntity: r.Entity, UpdatedAt: f.now()}
	if err := f.sessions.Save(ctx, st); err != nil {
		f.logger.Warn("Session update failed",
			zap.String("session_id", sessionID), zap.String("entity", r.Entity), zap.Error(err))
	}
}

// Resolve is Peek followed by Commit.
func (f *Filter) Resolve(ctx context.Context, sessionID, query string) Resolution {
	r := f.Peek(ctx, sessionID, query)
	f.Commit(ctx, sessionID, r)
	return r
}
