// Package runner drives the lint pipeline: chunking, prompting, evaluation,
// validation, aggregation, and artifact writing. Files are processed
// concurrently under a bounded limit; units within a file run in manuscript
// order. One failing file never stops the others.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/logiclint/logiclint/internal/assets"
	"github.com/logiclint/logiclint/internal/chunk"
	"github.com/logiclint/logiclint/internal/config"
	"github.com/logiclint/logiclint/internal/report"
	"github.com/logiclint/logiclint/internal/review"
)

// Runner owns one run's fixed inputs: configuration, rubric, schema, and the
// model caller. The LLM is injected so tests run against mocks.
type Runner struct {
	cfg    *config.Config
	rubric assets.Rubric
	schema *assets.Schema
	caller *review.Caller
	log    *zap.Logger
	runID  string
	now    func() time.Time
}

// New builds a Runner around the given provider client.
func New(cfg *config.Config, rubric assets.Rubric, schema *assets.Schema, llm review.LLM, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	policy := review.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
		MaxDelay:    cfg.Retry.MaxDelay(),
	}
	return &Runner{
		cfg:    cfg,
		rubric: rubric,
		schema: schema,
		caller: review.NewCaller(llm, policy, log),
		log:    log,
		runID:  uuid.NewString(),
		now:    time.Now,
	}
}

// FileResult is the outcome for one manuscript file.
type FileResult struct {
	Source     string
	Path       string
	ReportPath string
	AuditPath  string
	Units      int
	Findings   int
	Err        error
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID   string
	Results []FileResult
	Elapsed time.Duration
}

// Failed counts files that did not produce a report.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Succeeded counts files that produced a report.
func (s *Summary) Succeeded() int {
	return len(s.Results) - s.Failed()
}

// Run lints target, a manuscript file or directory. Discovery order is
// deterministic; per-file failures are recorded in the summary rather than
// aborting the run. Cancellation stops in-flight work and leaves no partial
// artifacts for the files it interrupts.
func (r *Runner) Run(ctx context.Context, target string, recursive bool) (*Summary, error) {
	started := r.now()

	files, err := Discover(target, recursive, r.cfg.Output.Dir, config.ConfigDir)
	if err != nil {
		return nil, err
	}

	revision := report.Revision(revisionDir(target))
	r.log.Info("run started",
		zap.String("run_id", r.runID),
		zap.String("provider", r.cfg.Provider),
		zap.String("model", r.cfg.Active().Model),
		zap.Int("files", len(files)))

	results := make([]FileResult, len(files))
	var g errgroup.Group
	limit := r.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, path := range files {
		g.Go(func() error {
			results[i] = r.lintFile(ctx, path, revision)
			return nil
		})
	}
	// Group functions record failures in their slot instead of returning
	// them, so Wait has nothing to surface.
	_ = g.Wait()

	summary := &Summary{RunID: r.runID, Results: results, Elapsed: r.now().Sub(started)}
	r.log.Info("run finished",
		zap.String("run_id", r.runID),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// lintFile runs the whole pipeline for one manuscript file.
func (r *Runner) lintFile(ctx context.Context, path, revision string) FileResult {
	res := FileResult{Path: path, Source: sourceLabel(path)}
	started := r.now()

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("cancelled before start: %w", err)
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read manuscript: %w", err)
		return res
	}

	units, err := chunk.Split(res.Source, string(data), chunk.Config{
		BudgetTokens:  r.cfg.Chunk.BudgetTokens,
		OverlapTokens: r.cfg.Chunk.OverlapTokens,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Units = len(units)
	res.ReportPath, res.AuditPath = report.Paths(r.cfg.Output.Dir, path)

	entries := make([]report.AuditEntry, 0, len(units))
	perUnit := make([][]review.Finding, 0, len(units))

	for _, u := range units {
		prompt := review.BuildPrompt(r.rubric, r.schema, u)
		entry := report.AuditEntry{Unit: u.Index, Start: u.ContextStart, End: u.End, Prompt: prompt}

		raw, err := r.caller.Evaluate(ctx, prompt)
		if err != nil {
			var malformed *review.MalformedResponseError
			if errors.As(err, &malformed) {
				entry.Response = malformed.Raw
			}
			entry.Note = err.Error()
			entries = append(entries, entry)
			return r.failFile(ctx, res, entries, fmt.Errorf("unit %d: %w", u.Index+1, err))
		}
		entry.Response = raw

		findings, err := review.ParseFindings(raw, r.schema, u)
		if err != nil {
			entry.Note = err.Error()
			entries = append(entries, entry)
			return r.failFile(ctx, res, entries, fmt.Errorf("unit %d: %w", u.Index+1, err))
		}

		entries = append(entries, entry)
		perUnit = append(perUnit, findings)
	}

	issues := report.Aggregate(perUnit)
	meta := report.Meta{
		GeneratedBy:    r.cfg.Provider + "-api",
		Model:          r.cfg.Active().Model,
		GeneratedAt:    r.now(),
		RubricVersion:  r.rubric.Version,
		SchemaVersion:  r.schema.Version,
		RunID:          r.runID,
		SourceRevision: revision,
		Units:          len(units),
	}

	if err := report.WriteReport(res.ReportPath, report.New(res.Source, issues, meta)); err != nil {
		res.Err = err
		return res
	}
	if err := report.WriteAudit(res.AuditPath, res.Source, entries); err != nil {
		res.Err = err
		return res
	}

	res.Findings = len(issues)
	r.log.Info("file linted",
		zap.String("source", res.Source),
		zap.Int("units", res.Units),
		zap.Int("findings", res.Findings),
		zap.Duration("elapsed", r.now().Sub(started)))
	return res
}

// failFile records a failure, persisting the audit trail so the rejected
// exchange can be inspected. A cancelled file writes nothing.
func (r *Runner) failFile(ctx context.Context, res FileResult, entries []report.AuditEntry, cause error) FileResult {
	res.Err = cause
	if ctx.Err() != nil {
		res.AuditPath = ""
		return res
	}
	if err := report.WriteAudit(res.AuditPath, res.Source, entries); err != nil {
		r.log.Warn("audit write failed", zap.String("source", res.Source), zap.Error(err))
	}
	r.log.Warn("file failed", zap.String("source", res.Source), zap.Error(cause))
	return res
}

// sourceLabel renders path relative to the working directory with forward
// slashes, so reports carry the same label on every platform. Paths outside
// the working directory keep their given form.
func sourceLabel(path string) string {
	cleaned := filepath.ToSlash(filepath.Clean(path))
	abs, err := filepath.Abs(path)
	if err != nil {
		return cleaned
	}
	cwd, err := os.Getwd()
	if err != nil {
		return cleaned
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return cleaned
	}
	return filepath.ToSlash(rel)
}

func revisionDir(target string) string {
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		return target
	}
	return filepath.Dir(target)
}
