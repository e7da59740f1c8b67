package request

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
)

// Question limits.
const (
	// MaxQueryLength is the maximum allowed question length in bytes.
	MaxQueryLength = 4096
	// MaxSessionIDLength bounds client-supplied session identifiers.
	MaxSessionIDLength = 128
	DefaultLimit       = 10
	MaxLimit           = 50
)

// Request is a validated question.
type Request struct {
	question   string
	sessionID  string
	searchMode mode.Mode
	limit      int
}

// New validates and normalizes a question.
// Defaults: mode=hybrid, limit=10. Control characters are replaced by spaces.
// sessionID may be empty for stateless searches.
func New(question, sessionID string, m mode.Mode, limit int) (Request, error) {
	if !utf8.ValidString(question) {
		return Request{}, fmt.Errorf("%w: question is not valid UTF-8", domain.ErrInvalidQuery)
	}
	question = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, question))
	if question == "" {
		return Request{}, fmt.Errorf("%w: question is required", domain.ErrInvalidQuery)
	}
	if len(question) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: question too long (max %d bytes)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if len(sessionID) > MaxSessionIDLength {
		return Request{}, fmt.Errorf("%w: session id too long (max %d)", domain.ErrInvalidQuery, MaxSessionIDLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search mode %q", domain.ErrInvalidQuery, m)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		question:   question,
		sessionID:  sessionID,
		searchMode: m,
		limit:      limit,
	}, nil
}

// Question returns the sanitized question text.
func (r *Request) Question() string { return r.question }

// SessionID returns the conversation session, empty for stateless calls.
func (r *Request) SessionID() string { return r.sessionID }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Limit returns the maximum number of hits for diagnostic searches.
func (r *Request) Limit() int { return r.limit }
