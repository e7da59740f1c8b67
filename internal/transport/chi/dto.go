package chi

import (
	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/stage"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// ErrorCode is the machine-readable error kind of an error response.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeInvalidQuery         ErrorCode = "invalid_query"
	ErrorCodeRetrievalUnavailable ErrorCode = "retrieval_unavailable"
	ErrorCodeRateLimited          ErrorCode = "rate_limited"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// SearchRequest is the body of POST /v1/search and /v1/search/compare.
type SearchRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// DocumentItem is one returned passage.
type DocumentItem struct {
	ID                string   `json:"id"`
	Content           string   `json:"content"`
	Section           string   `json:"section,omitempty"`
	Source            string   `json:"source,omitempty"`
	Area              string   `json:"area,omitempty"`
	Category          string   `json:"category,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Score             float64  `json:"score"`
	CrossEncoderScore *float64 `json:"ce_score,omitempty"`
	LLMScore          *int     `json:"llm_score,omitempty"`
}

// TraceStep is one pipeline stage in a debug trace.
type TraceStep struct {
	State      string  `json:"state"`
	Outcome    string  `json:"outcome"`
	DurationMs float64 `json:"duration_ms"`
	Detail     string  `json:"detail,omitempty"`
}

// QueryResponse is the reply of POST /v1/query and /v1/search.
type QueryResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	UsedCache bool           `json:"used_cache"`
	Entity    string         `json:"entity,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Documents []DocumentItem `json:"documents"`
	Trace     []TraceStep    `json:"trace,omitempty"`
}

// CompareItem is the ranking of one mode.
type CompareItem struct {
	Mode      string         `json:"mode"`
	Documents []DocumentItem `json:"documents"`
}

// CompareResponse is the reply of POST /v1/search/compare.
type CompareResponse struct {
	Results []CompareItem `json:"results"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// noResultMessage is shown when nothing passed the confidence filter.
const noResultMessage = "No relevant information was found for this question."

func documentItem(d *document.Document, score float64) DocumentItem {
	return DocumentItem{
		ID:       d.ID(),
		Content:  d.Content(),
		Section:  d.Section(),
		Source:   d.Source(),
		Area:     d.Area(),
		Category: d.Category(),
		Tags:     d.Tags(),
		Score:    score,
	}
}

func queryResponse(res answer.Result, sessionID string, withTrace bool) QueryResponse {
	resp := QueryResponse{
		Status:    string(res.Status()),
		UsedCache: res.UsedCache(),
		Entity:    res.Entity(),
		SessionID: sessionID,
		Documents: make([]DocumentItem, 0, len(res.Hits())),
	}
	if res.IsNoResult() {
		resp.Message = noResultMessage
	}
	for _, h := range res.Hits() {
		item := documentItem(&h.Document, h.FinalScore)
		ce := h.CrossEncoderScore
		item.CrossEncoderScore = &ce
		item.LLMScore = h.LLMScore
		resp.Documents = append(resp.Documents, item)
	}
	if withTrace {
		resp.Trace = traceSteps(res.Trace())
	}
	return resp
}

func traceSteps(steps []stage.Step) []TraceStep {
	out := make([]TraceStep, len(steps))
	for i, s := range steps {
		out[i] = TraceStep{
			State:      string(s.State),
			Outcome:    string(s.Outcome),
			DurationMs: float64(s.Duration.Microseconds()) / 1000,
			Detail:     s.Detail,
		}
	}
	return out
}

func compareResponse(cmp []searchuc.Comparison) CompareResponse {
	resp := CompareResponse{Results: make([]CompareItem, len(cmp))}
	for i, c := range cmp {
		docs := make([]DocumentItem, len(c.Hits))
		for j, h := range c.Hits {
			docs[j] = documentItem(&h.Document, h.FinalScore)
		}
		resp.Results[i] = CompareItem{Mode: string(c.Mode), Documents: docs}
	}
	return resp
}
