// Package crossencoder calls a text-embeddings-inference style /rerank endpoint.
package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/resilience"
)

const operation = "cross_encoder"

// Client scores (query, passage) pairs with a hosted cross-encoder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *zap.Logger
}

// Config holds the rerank service settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
	Logger   *zap.Logger
}

// New creates a rerank client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   cfg.Executor,
		logger:     logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score implements domain.CrossEncoder with a single batched request.
// The returned slice is aligned with passages.
func (c *Client) Score(ctx context.Context, query string, passages []domain.Passage) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	req := rerankRequest{Model: c.model, Query: query, Texts: texts, RawScores: true, Truncate: true}

	start := time.Now()
	items, err := resilience.Do(ctx, c.executor, operation,
		func(ctx context.Context) ([]rerankItem, error) {
			var out []rerankItem
			if err := c.postJSON(ctx, "/rerank", req, &out); err != nil {
				return nil, err
			}
			return out, nil
		}, resilience.ClassifyHTTP)
	metrics.CollaboratorRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrScorerUnavailable, err)
	}

	scores, err := align(items, len(passages))
	if err != nil {
		metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "malformed").Inc()
		return nil, err
	}
	metrics.CollaboratorRequestsTotal.WithLabelValues(operation, "success").Inc()
	return scores, nil
}

// align places each score at its input index; every input must be scored exactly once.
func align(items []rerankItem, n int) ([]float64, error) {
	if len(items) != n {
		return nil, fmt.Errorf("got %d scores for %d passages: %w", len(items), n, domain.ErrMalformedResponse)
	}
	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, it := range items {
		if it.Index < 0 || it.Index >= n || seen[it.Index] {
			return nil, fmt.Errorf("invalid score index %d: %w", it.Index, domain.ErrMalformedResponse)
		}
		seen[it.Index] = true
		scores[it.Index] = it.Score
	}
	return scores, nil
}

// HealthCheck probes the service's /health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cross-encoder health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("health", resp)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("rerank", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %v: %w", err, domain.ErrMalformedResponse)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &resilience.HTTPStatusError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}
