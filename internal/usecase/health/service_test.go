package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(zap.NewNop()).
		Register(ComponentRedis, &mockChecker{}).
		Register(ComponentEmbedding, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks[ComponentRedis] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks[ComponentRedis])
	}
	if r.Checks[ComponentEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[ComponentEmbedding])
	}
}

func TestCheck_OneFailureDegrades(t *testing.T) {
	svc := New(zap.NewNop()).
		Register(ComponentEmbedding, &mockChecker{}).
		Register(ComponentCrossEncoder, &mockChecker{err: errors.New("conn refused")}).
		Register(ComponentLLM, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentCrossEncoder] != CheckError {
		t.Errorf("expected cross_encoder %q, got %q", CheckError, r.Checks[ComponentCrossEncoder])
	}
	if r.Checks[ComponentLLM] != CheckOK {
		t.Errorf("expected llm %q, got %q", CheckOK, r.Checks[ComponentLLM])
	}
}

func TestCheck_AllFailedIsUnhealthy(t *testing.T) {
	svc := New(zap.NewNop()).
		Register(ComponentEmbedding, &mockChecker{err: errors.New("timeout")}).
		Register(ComponentCrossEncoder, &mockChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestRegister_NilIgnored(t *testing.T) {
	var llm Checker
	svc := New(zap.NewNop()).Register(ComponentEmbedding, &mockChecker{}).Register(ComponentLLM, llm)
	r := svc.Check(context.Background())

	if _, ok := r.Checks[ComponentLLM]; ok {
		t.Error("nil checker should not be reported")
	}
	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
}

func TestCheck_TimeoutBoundsSlowProbe(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc := New(zap.NewNop()).Register(ComponentRedis, slow).Register(ComponentEmbedding, &mockChecker{})
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honor the timeout")
	}
	if r.Checks[ComponentRedis] != CheckError || r.Status != Degraded {
		t.Errorf("unexpected report %+v", r)
	}
}
