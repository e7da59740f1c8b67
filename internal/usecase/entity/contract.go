package entity

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/session"
)

// SessionStore persists conversation state per session.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (session.State, bool, error)
	Save(ctx context.Context, st session.State) error
}
