// Package session holds per-conversation context carried between queries.
package session

import "time"

// State is the conversation context of one session.
type State struct {
	SessionID  string    `json:"session_id"`
	LastEntity string    `json:"last_entity,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasEntity reports whether an earlier query named an entity.
func (s State) HasEntity() bool { return s.LastEntity != "" }
