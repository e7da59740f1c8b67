package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain/session"
)

// kvStore is the consumer interface for the Redis-backed session store.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Redis shares session state between replicas. idleTTL bounds storage for
// abandoned sessions; zero keeps state forever.
type Redis struct {
	store   kvStore
	prefix  string
	idleTTL time.Duration
}

// NewRedis creates a session store over s with keys "<keyPrefix>session:<id>".
func NewRedis(s kvStore, keyPrefix string, idleTTL time.Duration) *Redis {
	return &Redis{store: s, prefix: keyPrefix + "session:", idleTTL: idleTTL}
}

// Get returns the state of sessionID, if any.
func (r *Redis) Get(ctx context.Context, sessionID string) (session.State, bool, error) {
	data, err := r.store.Get(ctx, r.prefix+sessionID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return session.State{}, false, nil
		}
		return session.State{}, false, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return session.State{}, false, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	st.SessionID = sessionID
	return st, true, nil
}

// Save writes st, refreshing the idle TTL.
func (r *Redis) Save(ctx context.Context, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", st.SessionID, err)
	}
	key := r.prefix + st.SessionID
	if r.idleTTL > 0 {
		err = r.store.SetWithTTL(ctx, key, data, r.idleTTL)
	} else {
		err = r.store.Set(ctx, key, data)
	}
	if err != nil {
		return fmt.Errorf("save session %s: %w", st.SessionID, err)
	}
	return nil
}
