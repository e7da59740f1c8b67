// Package stage models the retrieval state machine: the states a request
// moves through and the outcome each stage reports.
package stage

import (
	"fmt"
	"time"
)

// State is a step of the retrieval pipeline.
type State string

// Pipeline states and terminals.
const (
	CacheCheck      State = "CACHE_CHECK"
	EntityResolve   State = "ENTITY_RESOLVE"
	ParallelSearch  State = "PARALLEL_SEARCH"
	Fuse            State = "FUSE"
	CEScore         State = "CE_SCORE"
	LLMFilter       State = "LLM_FILTER"
	IntegrateFilter State = "INTEGRATE_FILTER"
	CacheWrite      State = "CACHE_WRITE"
	Done            State = "DONE"
	NoResult        State = "NO_RESULT"
	Error           State = "ERROR"
)

// Outcome is how a stage ended.
type Outcome string

// Stage outcomes.
const (
	OK      Outcome = "ok"
	Skipped Outcome = "skipped"
	Fatal   Outcome = "fatal"
)

// Result is the value a stage hands to the orchestrator.
type Result[T any] struct {
	outcome Outcome
	value   T
	reason  string
	err     error
}

// Ok wraps a successful stage value.
func Ok[T any](v T) Result[T] {
	return Result[T]{outcome: OK, value: v}
}

// Skip reports a stage that did not run or was abandoned. cause may be nil.
func Skip[T any](reason string, cause error) Result[T] {
	return Result[T]{outcome: Skipped, reason: reason, err: cause}
}

// Fail reports a stage failure that ends the request.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = fmt.Errorf("stage failed without cause")
	}
	return Result[T]{outcome: Fatal, reason: err.Error(), err: err}
}

// Outcome returns how the stage ended.
func (r Result[T]) Outcome() Outcome { return r.outcome }

// Value returns the stage value; zero unless the outcome is OK.
func (r Result[T]) Value() T { return r.value }

// Reason returns why a stage was skipped or failed.
func (r Result[T]) Reason() string { return r.reason }

// Err returns the underlying cause, if any.
func (r Result[T]) Err() error { return r.err }

// IsOK reports a successful stage.
func (r Result[T]) IsOK() bool { return r.outcome == OK }

// IsSkipped reports a skipped stage.
func (r Result[T]) IsSkipped() bool { return r.outcome == Skipped }

// IsFatal reports a failed stage.
func (r Result[T]) IsFatal() bool { return r.outcome == Fatal }

// Step is one entry of a request trace.
type Step struct {
	State    State
	Outcome  Outcome
	Duration time.Duration
	Detail   string
}

// Trace records the states a request went through, in order.
type Trace struct {
	steps []Step
}

// Record appends a step.
func (t *Trace) Record(s State, o Outcome, d time.Duration, detail string) {
	t.steps = append(t.steps, Step{State: s, Outcome: o, Duration: d, Detail: detail})
}

// Steps returns the recorded steps.
func (t *Trace) Steps() []Step { return t.steps }

// States returns only the state names, in order.
func (t *Trace) States() []State {
	out := make([]State, len(t.steps))
	for i, s := range t.steps {
		out[i] = s.State
	}
	return out
}

// Outcome returns the outcome of the last occurrence of s.
func (t *Trace) Outcome(s State) (Outcome, bool) {
	for i := len(t.steps) - 1; i >= 0; i-- {
		if t.steps[i].State == s {
			return t.steps[i].Outcome, true
		}
	}
	return "", false
}
