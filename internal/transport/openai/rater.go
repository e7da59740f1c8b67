package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/resilience"
)

const raterSystemPrompt = `You grade search results for a travel question-answering service.
Rate how well each passage answers the question on an integer scale from 0 (unrelated) to 10 (answers it directly).
Reply with JSON only, in exactly this shape:
{"scores": [{"id": "<passage id>", "score": <0-10>}]}`

// Rater scores candidate passages with a chat completion model.
type Rater struct {
	client          *openai.Client
	model           string
	temperature     float32
	maxPassageChars int
	executor        *resilience.Executor
	logger          *zap.Logger
}

// RaterConfig holds the chat model settings.
type RaterConfig struct {
	Config
	Temperature     float32
	MaxPassageChars int
}

// NewRater creates a Rater over an OpenAI-compatible chat completions API.
func NewRater(cfg *RaterConfig) *Rater {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rater{
		client:          newClient(&cfg.Config),
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxPassageChars: cfg.MaxPassageChars,
		executor:        cfg.Executor,
		logger:          logger,
	}
}

type rating struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type ratingResponse struct {
	Scores []rating `json:"scores"`
}

// Rate implements domain.Rater. Scores are rounded and clamped to 0..10;
// ids the request did not contain are ignored.
func (r *Rater) Rate(ctx context.Context, question string, passages []domain.Passage) (map[string]int, error) {
	if len(passages) == 0 {
		return map[string]int{}, nil
	}

	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: raterSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: r.buildPrompt(question, passages)},
		},
	}

	start := time.Now()
	resp, err := resilience.Do(ctx, r.executor, "llm",
		func(ctx context.Context) (openai.ChatCompletionResponse, error) {
			return r.client.CreateChatCompletion(ctx, req)
		}, Classify)
	metrics.CollaboratorRequestDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues("llm", "error").Inc()
		return nil, parseAPIError("llm", err, domain.ErrLLMUnavailable)
	}
	if len(resp.Choices) == 0 {
		metrics.CollaboratorRequestsTotal.WithLabelValues("llm", "malformed").Inc()
		return nil, fmt.Errorf("llm returned no choices: %w", domain.ErrMalformedResponse)
	}

	scores, err := parseRatings(resp.Choices[0].Message.Content, passages)
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues("llm", "malformed").Inc()
		r.logger.Debug("Unparseable rating response",
			zap.String("content", resp.Choices[0].Message.Content), zap.Error(err))
		return nil, err
	}

	metrics.CollaboratorRequestsTotal.WithLabelValues("llm", "success").Inc()
	return scores, nil
}

// HealthCheck verifies API availability via ListModels.
func (r *Rater) HealthCheck(ctx context.Context) error {
	if _, err := r.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (r *Rater) buildPrompt(question string, passages []domain.Passage) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nPassages:\n")
	for _, p := range passages {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", p.ID, truncateRunes(p.Content, r.maxPassageChars))
	}
	return sb.String()
}

func parseRatings(content string, passages []domain.Passage) (map[string]int, error) {
	var parsed ratingResponse
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &parsed); err != nil {
		return nil, fmt.Errorf("decode ratings: %v: %w", err, domain.ErrMalformedResponse)
	}
	if len(parsed.Scores) == 0 {
		return nil, fmt.Errorf("no ratings in response: %w", domain.ErrMalformedResponse)
	}

	known := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		known[p.ID] = struct{}{}
	}

	out := make(map[string]int, len(parsed.Scores))
	for _, s := range parsed.Scores {
		if _, ok := known[s.ID]; !ok {
			continue
		}
		out[s.ID] = clampScore(s.Score)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ratings reference no known passage: %w", domain.ErrMalformedResponse)
	}
	return out, nil
}

func clampScore(v float64) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 10:
		return 10
	}
	return int(math.Round(v))
}

// extractJSONObject strips prose or markdown fences around the first JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
