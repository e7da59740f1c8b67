package entity

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/session"
)

// --- Mocks ---

type mockSessions struct {
	states  map[string]session.State
	getErr  error
	saveErr error
	saves   int
}

func newMockSessions() *mockSessions {
	return &mockSessions{states: map[string]session.State{}}
}

func (m *mockSessions) Get(_ context.Context, id string) (session.State, bool, error) {
	if m.getErr != nil {
		return session.State{}, false, m.getErr
	}
	st, ok := m.states[id]
	return st, ok, nil
}

func (m *mockSessions) Save(_ context.Context, st session.State) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[st.SessionID] = st
	return nil
}

// --- Tests ---

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := NewVocabulary([]Term{
		{Name: "kusatsu", Aliases: []string{"草津", "くさつ"}},
		{Name: "hakone", Aliases: []string{"箱根", "はこね"}},
		{Name: "Beppu", Aliases: []string{"別府", " "}},
	})
	if err != nil {
		t.Fatalf("NewVocabulary: %v", err)
	}
	return v
}

func TestVocabulary_Detect(t *testing.T) {
	v := testVocabulary(t)
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"草津温泉の湯畑について教えて", "kusatsu", true},
		{"What about HAKONE ropeway?", "hakone", true},
		{"別府と草津はどちらが良い？", "beppu", true},
		{"草津と別府", "kusatsu", true},
		{"近くのカフェは？", "", false},
		{"beppu", "beppu", true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := v.Detect(tc.text)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Detect(%q) = %q, %v; want %q, %v", tc.text, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestVocabulary_TieGoesToDeclarationOrder(t *testing.T) {
	v, err := NewVocabulary([]Term{
		{Name: "onsen-town", Aliases: []string{"湯"}},
		{Name: "yu", Aliases: []string{"湯"}},
	})
	if err != nil {
		t.Fatalf("NewVocabulary: %v", err)
	}
	if got, _ := v.Detect("湯めぐり"); got != "onsen-town" {
		t.Errorf("Detect() = %q, want onsen-town", got)
	}
}

func TestNewVocabulary_Errors(t *testing.T) {
	if _, err := NewVocabulary([]Term{{Name: " "}}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewVocabulary([]Term{{Name: "a"}, {Name: "A"}}); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestFilter_ContextCarriesAcrossTurns(t *testing.T) {
	sessions := newMockSessions()
	f := NewFilter(testVocabulary(t), sessions, zap.NewNop())
	ctx := context.Background()

	r := f.Resolve(ctx, "s1", "草津温泉について教えて")
	if r.Entity != "kusatsu" || r.Source != SourceQuery {
		t.Fatalf("first turn: %+v", r)
	}

	r = f.Resolve(ctx, "s1", "そこの近くのカフェは？")
	if r.Entity != "kusatsu" || r.Source != SourceContext {
		t.Fatalf("follow-up should use context: %+v", r)
	}
	if sessions.saves != 1 {
		t.Errorf("context resolution must not write the session, saves=%d", sessions.saves)
	}

	r = f.Resolve(ctx, "s1", "箱根はどう？")
	if r.Entity != "hakone" {
		t.Fatalf("new entity should supersede: %+v", r)
	}
	if sessions.states["s1"].LastEntity != "hakone" {
		t.Errorf("session not updated: %+v", sessions.states["s1"])
	}
}

func TestFilter_SessionsAreIsolated(t *testing.T) {
	sessions := newMockSessions()
	f := NewFilter(testVocabulary(t), sessions, zap.NewNop())
	ctx := context.Background()

	f.Resolve(ctx, "a", "別府の地獄めぐり")
	r := f.Resolve(ctx, "b", "おすすめの宿は？")
	if r.Source != SourceNone || r.Entity != "" {
		t.Errorf("session b must not see session a's entity: %+v", r)
	}
}

func TestFilter_PeekHasNoSideEffects(t *testing.T) {
	sessions := newMockSessions()
	f := NewFilter(testVocabulary(t), sessions, zap.NewNop())

	r := f.Peek(context.Background(), "s", "草津")
	if r.Entity != "kusatsu" || sessions.saves != 0 {
		t.Errorf("Peek wrote state: %+v saves=%d", r, sessions.saves)
	}
}

func TestFilter_CommitStampsTime(t *testing.T) {
	sessions := newMockSessions()
	f := NewFilter(testVocabulary(t), sessions, zap.NewNop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	f.Commit(context.Background(), "s", Resolution{Entity: "hakone", Source: SourceQuery})
	if !sessions.states["s"].UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v", sessions.states["s"].UpdatedAt)
	}
}

func TestFilter_StoreFailuresDegradeToNoContext(t *testing.T) {
	sessions := newMockSessions()
	sessions.getErr = errors.New("redis down")
	sessions.saveErr = errors.New("redis down")
	f := NewFilter(testVocabulary(t), sessions, zap.NewNop())
	ctx := context.Background()

	if r := f.Resolve(ctx, "s", "草津"); r.Entity != "kusatsu" {
		t.Errorf("detection must work without the store: %+v", r)
	}
	if r := f.Resolve(ctx, "s", "カフェ"); r.Source != SourceNone {
		t.Errorf("expected no context, got %+v", r)
	}
}

func TestFilter_Stateless(t *testing.T) {
	f := NewFilter(testVocabulary(t), nil, zap.NewNop())
	if r := f.Resolve(context.Background(), "", "カフェ"); r.Source != SourceNone {
		t.Errorf("unexpected %+v", r)
	}
}
