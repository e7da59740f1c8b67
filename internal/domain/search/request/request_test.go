package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("  草津の泉質は？\n", "s-1", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Question() != "草津の泉質は？" {
		t.Errorf("Question() = %q", r.Question())
	}
	if r.Mode() != mode.Hybrid {
		t.Errorf("Mode() = %q", r.Mode())
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d", r.Limit())
	}
	if r.SessionID() != "s-1" {
		t.Errorf("SessionID() = %q", r.SessionID())
	}
}

func TestNew_ControlCharsReplaced(t *testing.T) {
	r, err := New("hakone\x00access", "", mode.Keyword, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Question() != "hakone access" {
		t.Errorf("Question() = %q", r.Question())
	}
}

func TestNew_LimitClamped(t *testing.T) {
	r, err := New("q", "", mode.Semantic, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), MaxLimit)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		sessionID string
		mode      mode.Mode
	}{
		{"empty", "", "", ""},
		{"whitespace", " \t\n", "", ""},
		{"too long", strings.Repeat("a", MaxQueryLength+1), "", ""},
		{"invalid utf8", "\xff\xfe", "", ""},
		{"long session", "q", strings.Repeat("s", MaxSessionIDLength+1), ""},
		{"bad mode", "q", "", "geo"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.question, tc.sessionID, tc.mode, 0)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}
