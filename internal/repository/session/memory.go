// Package session stores conversation state keyed by session id.
package session

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ragdex/internal/domain/session"
)

// Memory is the in-process session store. Concurrent writes to one session
// resolve last-write-wins.
type Memory struct {
	mu     sync.RWMutex
	states map[string]session.State
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]session.State)}
}

// Get returns the state of sessionID, if any.
func (m *Memory) Get(_ context.Context, sessionID string) (session.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[sessionID]
	return st, ok, nil
}

// Save replaces the state of st.SessionID.
func (m *Memory) Save(_ context.Context, st session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.SessionID] = st
	return nil
}

// Len returns the number of known sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
