// Package answer defines what the retrieval pipeline hands to answer generation.
package answer

import (
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/stage"
)

// Status distinguishes found passages from the explicit no-information outcome.
type Status string

// Result statuses.
const (
	StatusOK       Status = "ok"
	StatusNoResult Status = "no_result"
)

// Hit is a selected passage with the scores that placed it.
type Hit struct {
	Document          document.Document
	FinalScore        float64
	CrossEncoderScore float64
	LLMScore          *int
}

// Result is the pipeline output: passages, or NoResult.
type Result struct {
	status    Status
	hits      []Hit
	entity    string
	usedCache bool
	trace     []stage.Step
}

// Found creates a result with at least one passage.
func Found(hits []Hit, entity string) Result {
	if len(hits) == 0 {
		return NoResult(entity)
	}
	return Result{status: StatusOK, hits: hits, entity: entity}
}

// NoResult creates the explicit "no relevant information" outcome.
func NoResult(entity string) Result {
	return Result{status: StatusNoResult, entity: entity}
}

// Status returns ok or no_result.
func (r Result) Status() Status { return r.status }

// IsNoResult reports that nothing passed the confidence threshold.
func (r Result) IsNoResult() bool { return r.status == StatusNoResult }

// Hits returns the selected passages, best first.
func (r Result) Hits() []Hit { return r.hits }

// Documents returns the selected passages without scores.
func (r Result) Documents() []document.Document {
	out := make([]document.Document, len(r.hits))
	for i, h := range r.hits {
		out[i] = h.Document
	}
	return out
}

// DocumentIDs returns the ids of the selected passages.
func (r Result) DocumentIDs() []string {
	out := make([]string, len(r.hits))
	for i, h := range r.hits {
		out[i] = h.Document.ID()
	}
	return out
}

// Entity returns the entity that scoped the search, empty for the whole corpus.
func (r Result) Entity() string { return r.entity }

// UsedCache reports whether the result was served from the query cache.
func (r Result) UsedCache() bool { return r.usedCache }

// Trace returns the per-stage trace of the request that produced the result.
func (r Result) Trace() []stage.Step { return r.trace }

// FromCache returns a copy marked as served from cache.
func (r Result) FromCache() Result {
	r.usedCache = true
	return r
}

// WithTrace returns a copy carrying the request trace.
func (r Result) WithTrace(steps []stage.Step) Result {
	r.trace = steps
	return r
}
