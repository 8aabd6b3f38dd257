// Command writebench runs a writing-quality pull loop to convergence: it
// wires a cache.Store, a need identifier, and a pull.Loop together, logs
// structured progress, and writes the final ratings out as a report plus a
// cumulative store update.
//
// LLM provider SDK wiring and authentication are out of scope for this
// entrypoint (see internal/llm.Provider) -- writebench dispatches every
// configured writer/feedback/judge model to an in-process
// llm.NewMockProvider unless a future operator-supplied registry replaces
// modelProviders below.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tommoa/writing-bench/internal/cache"
	"github.com/tommoa/writing-bench/internal/judgequality"
	"github.com/tommoa/writing-bench/internal/llm"
	"github.com/tommoa/writing-bench/internal/need"
	"github.com/tommoa/writing-bench/internal/promptio"
	"github.com/tommoa/writing-bench/internal/pull"
	"github.com/tommoa/writing-bench/internal/report"
	"github.com/tommoa/writing-bench/internal/store"
	"github.com/tommoa/writing-bench/pkg/types"
)

func main() {
	cacheDir := flag.String("cache-dir", defaultCacheDir(), "judgment/artifact cache directory")
	storePath := flag.String("store-path", "", "cumulative ratings JSON path (default <cache-dir>/ratings.json)")
	historyPath := flag.String("history-db", "", "SQLite judgment audit log path (default <cache-dir>/history.db)")
	concurrency := flag.Int("concurrency", 4, "max in-flight cascade tasks per round")
	maxRounds := flag.Int("max-rounds", 50, "max pull-loop rounds before giving up")
	batchSize := flag.Int("batch-size", 32, "max candidates requested per round")
	ciThreshold := flag.Float64("ci-threshold", 0, "Elo CI half-width below which a model is considered settled")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	writersFlag := flag.String("writers", "", "comma-separated label=provider:model writer specs")
	judgesFlag := flag.String("judges", "", "comma-separated label=provider:model judge specs (default: writers)")
	promptsPath := flag.String("prompts", "", "path to a JSON array of prompts")
	format := flag.String("format", "markdown", "final report format: markdown or json")
	flag.Parse()

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*cacheDir, *storePath, *historyPath, *concurrency, *maxRounds, *batchSize,
		*ciThreshold, *writersFlag, *judgesFlag, *promptsPath, *format, logger); err != nil {
		logger.Error("writebench failed", "err", err)
		os.Exit(1)
	}
}

func run(cacheDir, storePath, historyPath string, concurrency, maxRounds, batchSize int, ciThreshold float64,
	writersFlag, judgesFlag, promptsPath, format string, logger *slog.Logger) error {

	writers, err := parseModelSpecs(writersFlag)
	if err != nil {
		return fmt.Errorf("-writers: %w", err)
	}
	if len(writers) == 0 {
		return fmt.Errorf("-writers must name at least one label=provider:model spec")
	}
	judges, err := parseModelSpecs(judgesFlag)
	if err != nil {
		return fmt.Errorf("-judges: %w", err)
	}

	prompts, err := loadPrompts(promptsPath)
	if err != nil {
		return fmt.Errorf("-prompts: %w", err)
	}

	if storePath == "" {
		storePath = filepath.Join(cacheDir, "ratings.json")
	}
	if historyPath == "" {
		historyPath = filepath.Join(cacheDir, "history.db")
	}

	cacheStore := cache.NewStore(cacheDir)

	history, err := store.OpenHistory(historyPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer history.Close()

	cumulative, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open cumulative store: %w", err)
	}

	cfg := pull.RunConfig{
		Writers: writers,
		Judges:  judges,
		Prompts: prompts,
		NeedConfig: need.Config{
			CIThreshold:      ciThreshold,
			MinPairsPerModel: need.DefaultConfig().MinPairsPerModel,
			MaxRounds:        maxRounds,
			WritingWeight:    need.DefaultConfig().WritingWeight,
			FeedbackWeight:   need.DefaultConfig().FeedbackWeight,
			RevisedWeight:    need.DefaultConfig().RevisedWeight,
		},
		QualityConfig: judgequality.DefaultConfig(),
		Concurrency:   concurrency,
		BatchSize:     batchSize,
	}

	providers := modelProviders(writers, judges)

	loop := pull.NewLoop(cacheStore, providers, cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("writebench starting", "writers", len(writers), "judges", len(judges), "prompts", len(prompts))

	runResult, err := loop.Run(ctx)
	if err != nil {
		return fmt.Errorf("pull loop: %w", err)
	}

	logger.Info("writebench converged", "stop_reason", runResult.StopReason, "rounds", len(runResult.Rounds))

	for _, j := range loop.Judgments() {
		if err := history.Record(j.JudgmentID, j.JudgeModel, j.PromptID, j.SampleA, j.SampleB, j.Winner, j.Stage); err != nil {
			logger.Warn("history record failed", "err", err)
		}
	}

	if err := cumulative.Merge(loop.WritingRecords(), loop.FeedbackRecords(), loop.WritingRecordsByTag()); err != nil {
		return fmt.Errorf("merge cumulative store: %w", err)
	}

	summary := report.RunSummary{
		StopReason: runResult.StopReason,
		Converged:  runResult.Converged,
		Rounds:     len(runResult.Rounds),
		Writing:    runResult.Writing,
		Feedback:   runResult.Feedback,
		Revised:    runResult.Revised,
	}

	switch format {
	case "json":
		out, err := report.GenerateJSONReport(summary)
		if err != nil {
			return fmt.Errorf("generate json report: %w", err)
		}
		os.Stdout.Write(out)
		fmt.Println()
	default:
		md := &report.MarkdownReport{Title: "Writing Bench Report", RunAt: now(), Run: summary}
		if err := report.GenerateMarkdown(os.Stdout, md); err != nil {
			return fmt.Errorf("generate markdown report: %w", err)
		}
	}

	return nil
}

// now is split out so tests exercising run's pure pieces don't need a
// clock dependency threaded through; main itself always wants wall time.
func now() time.Time { return time.Now() }

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// parseModelSpecs parses a comma-separated list of label=provider:model
// entries, e.g. "gpt=openai:gpt-5,claude=anthropic:claude-opus".
func parseModelSpecs(s string) ([]pull.ModelSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var specs []pull.ModelSpec
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("spec %q missing '=': want label=provider:model", entry)
		}
		providerName, model, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("spec %q missing ':': want label=provider:model", entry)
		}
		specs = append(specs, pull.ModelSpec{Label: label, Provider: providerName, Model: model})
	}
	return specs, nil
}

// loadPrompts reads a JSON array of types.Prompt from path.
func loadPrompts(path string) ([]types.Prompt, error) {
	if path == "" {
		return nil, fmt.Errorf("path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prompts []types.Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	loader := promptio.NewStaticLoader(prompts)
	return loader.Load()
}

// modelProviders builds the provider registry every configured writer and
// judge resolves against. Real provider SDK wiring is explicitly out of
// scope for this core; every distinct provider name is backed by a mock
// that returns deterministic placeholder completions.
func modelProviders(writers, judges []pull.ModelSpec) map[string]llm.Provider {
	providers := make(map[string]llm.Provider)
	for _, spec := range writers {
		if _, ok := providers[spec.Provider]; !ok {
			providers[spec.Provider] = llm.NewMockProvider(nil, nil, nil, nil, nil)
		}
	}
	for _, spec := range judges {
		if _, ok := providers[spec.Provider]; !ok {
			providers[spec.Provider] = llm.NewMockProvider(nil, nil, nil, nil, nil)
		}
	}
	return providers
}

func defaultCacheDir() string {
	if dir := os.Getenv("WRITEBENCH_CACHE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".writebench-cache"
	}
	return filepath.Join(home, ".writebench", "cache")
}
