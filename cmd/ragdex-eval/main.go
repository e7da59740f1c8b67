// Command ragdex-eval replays a question file through retrieval and prints
// a keyword match report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/app"
	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/usecase/evaluate"
)

func main() {
	questions := flag.String("questions", "data/eval_questions.json", "evaluation question file")
	k := flag.Int("k", 3, "passages retrieved per question")
	searchMode := flag.String("mode", string(mode.Hybrid), "search mode: hybrid, semantic or keyword")
	flag.Parse()

	if err := run(*questions, *k, mode.Mode(*searchMode)); err != nil {
		fmt.Fprintln(os.Stderr, "ragdex-eval:", err)
		os.Exit(1)
	}
}

func run(path string, k int, m mode.Mode) error {
	if !m.IsValid() {
		return fmt.Errorf("invalid mode %q", m)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open questions: %w", err)
	}
	cases, err := evaluate.LoadCases(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("Running evaluation",
		zap.String("questions", path), zap.Int("cases", len(cases)),
		zap.Int("k", k), zap.String("mode", string(m)))

	sum, err := evaluate.New(a.Search, m, k, logger).Run(ctx, cases)
	if err != nil {
		return err
	}
	report(sum)
	return nil
}

func report(sum evaluate.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GRADE\tRATE\tCHUNK\tQUESTION\tRETRIEVED")
	for _, o := range sum.Outcomes {
		chunk := "-"
		if o.ChunkFound {
			chunk = "hit"
		}
		retrieved := strings.Join(o.Retrieved, ",")
		switch {
		case o.Err != nil:
			retrieved = "error: " + o.Err.Error()
		case o.NoResult:
			retrieved = "(no result)"
		}
		fmt.Fprintf(w, "%s\t%.0f%%\t%s\t%s\t%s\n", o.Grade, o.MatchRate*100, chunk, o.Case.Question, retrieved)
	}
	_ = w.Flush()

	fmt.Printf("\n%d questions: OK %d, WARN %d, BAD %d, errors %d, mean keyword match %.1f%%\n",
		len(sum.Outcomes), sum.OK, sum.Warn, sum.Bad, sum.Errors, sum.MeanMatchRate*100)
}
