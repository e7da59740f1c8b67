// Package evaluate replays a question set through retrieval and grades how
// many of the expected answer keywords the returned passages contain.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/answer"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
)

// Retriever runs one stateless search.
type Retriever interface {
	SearchOnly(ctx context.Context, req *request.Request) (answer.Result, error)
}

// Case is one evaluation question.
type Case struct {
	Question      string   `json:"question"`
	ExpectedChunk string   `json:"expected_chunk"`
	Keywords      []string `json:"expected_answer_keywords"`
}

type caseFile struct {
	Questions []Case `json:"questions"`
}

// Grade buckets a match rate.
type Grade string

// Grades: OK at half the keywords or more, Warn above zero, Bad otherwise.
const (
	GradeOK   Grade = "OK"
	GradeWarn Grade = "WARN"
	GradeBad  Grade = "BAD"
)

// GradeFor returns the grade of a keyword match rate.
func GradeFor(rate float64) Grade {
	switch {
	case rate >= 0.5:
		return GradeOK
	case rate > 0:
		return GradeWarn
	default:
		return GradeBad
	}
}

// Outcome is the graded result of one case.
type Outcome struct {
	Case       Case
	Retrieved  []string
	Matched    []string
	MatchRate  float64
	ChunkFound bool
	NoResult   bool
	Grade      Grade
	Err        error
}

// Summary aggregates a run.
type Summary struct {
	Outcomes      []Outcome
	OK            int
	Warn          int
	Bad           int
	Errors        int
	MeanMatchRate float64
}

// LoadCases decodes a {"questions": [...]} document.
func LoadCases(r io.Reader) ([]Case, error) {
	var f caseFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("question file has no questions")
	}
	return f.Questions, nil
}

// Service runs evaluations.
type Service struct {
	retriever Retriever
	mode      mode.Mode
	k         int
	logger    *zap.Logger
}

// New creates an evaluation service returning k passages per question.
func New(retriever Retriever, m mode.Mode, k int, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, mode: m, k: k, logger: logger}
}

// Run evaluates cases in order. A failing question is counted and reported
// but does not stop the run; a cancelled context does.
func (s *Service) Run(ctx context.Context, cases []Case) (Summary, error) {
	var sum Summary
	var rateTotal float64

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		o := s.evaluate(ctx, c)
		if o.Err != nil {
			sum.Errors++
			s.logger.Warn("Evaluation question failed", zap.String("question", c.Question), zap.Error(o.Err))
		}
		switch o.Grade {
		case GradeOK:
			sum.OK++
		case GradeWarn:
			sum.Warn++
		default:
			sum.Bad++
		}
		rateTotal += o.MatchRate
		sum.Outcomes = append(sum.Outcomes, o)
	}

	if len(sum.Outcomes) > 0 {
		sum.MeanMatchRate = rateTotal / float64(len(sum.Outcomes))
	}
	return sum, nil
}

func (s *Service) evaluate(ctx context.Context, c Case) Outcome {
	o := Outcome{Case: c, Grade: GradeBad}

	req, err := request.New(c.Question, "", s.mode, s.k)
	if err != nil {
		o.Err = err
		return o
	}
	res, err := s.retriever.SearchOnly(ctx, &req)
	if err != nil {
		o.Err = err
		return o
	}

	o.NoResult = res.IsNoResult()
	var text strings.Builder
	for _, d := range res.Documents() {
		o.Retrieved = append(o.Retrieved, d.ID())
		if d.ID() == c.ExpectedChunk {
			o.ChunkFound = true
		}
		text.WriteString(d.Content())
		text.WriteByte(' ')
	}

	all := text.String()
	for _, kw := range c.Keywords {
		if strings.Contains(all, kw) {
			o.Matched = append(o.Matched, kw)
		}
	}
	if len(c.Keywords) > 0 {
		o.MatchRate = float64(len(o.Matched)) / float64(len(c.Keywords))
	}
	o.Grade = GradeFor(o.MatchRate)
	return o
}
