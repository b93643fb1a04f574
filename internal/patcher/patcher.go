// Package patcher drives one plan over files on disk: load, apply in memory,
// vet, commit, and journal the outcome.
package patcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docpatch/internal/crawler"
	"docpatch/internal/diff"
	"docpatch/internal/document"
	"docpatch/internal/editor"
	"docpatch/internal/plan"
	"docpatch/internal/rewriter"
	"docpatch/internal/storage"
	"docpatch/internal/syntax"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Run statuses written to the journal.
const (
	RunApplied   = "applied"
	RunUnchanged = "unchanged"
	RunDryRun    = "dry-run"
	RunFailed    = "failed"
)

type Patcher struct {
	batch       string
	journal     storage.JournalStore
	logger      *zap.Logger
	seam        editor.Seam
	syntaxGuard bool
}

type Option func(*Patcher)

// WithJournal records every run in j.
func WithJournal(j storage.JournalStore) Option {
	return func(p *Patcher) { p.journal = j }
}

// WithDefaultSeam sets the seam for delete steps that do not name one.
func WithDefaultSeam(s editor.Seam) Option {
	return func(p *Patcher) { p.seam = s }
}

// WithSyntaxGuard rejects output that a tree-sitter grammar for the file's
// extension can no longer parse.
func WithSyntaxGuard(on bool) Option {
	return func(p *Patcher) { p.syntaxGuard = on }
}

func NewPatcher(logger *zap.Logger, opts ...Option) *Patcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Patcher{batch: uuid.NewString(), logger: logger, seam: editor.SeamBlankLine}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Batch identifies the runs journaled by this patcher.
func (p *Patcher) Batch() string { return p.batch }

// RunOptions control a single invocation.
type RunOptions struct {
	DryRun bool
	Diff   bool
}

// Result describes what happened to one file.
type Result struct {
	Path      string
	Report    *rewriter.Report
	Diff      string
	Stats     diff.Stats
	Committed bool
	RunID     int64
	Err       error
}

// PatchFile applies pl to the file at path. The file is rewritten only if
// every step succeeds, the output passes the syntax guard and the text
// actually changed. The returned error is also stored in Result.Err.
func (p *Patcher) PatchFile(ctx context.Context, path string, pl *plan.Plan, opts RunOptions) (*Result, error) {
	started := time.Now()
	res := &Result{Path: path}
	log := p.logger.With(zap.String("path", path), zap.String("plan", pl.Name), zap.String("batch", p.batch))

	doc, err := rewriter.Load(path)
	if err != nil {
		res.Err = err
		p.record(ctx, res, pl, document.Document{}, document.Document{}, started, opts)
		return res, err
	}

	var applyOpts []rewriter.Option
	applyOpts = append(applyOpts, rewriter.WithDefaultSeam(p.seam))
	if p.syntaxGuard {
		if checker, ok := syntax.ForPath(path); ok {
			applyOpts = append(applyOpts, rewriter.WithValidator(checker))
			log.Debug("syntax guard enabled", zap.String("language", checker.Language()))
		}
	}

	out, report, err := rewriter.Apply(doc, pl, applyOpts...)
	res.Report = report
	for _, st := range report.Steps {
		log.Debug("step",
			zap.Int("index", st.Index),
			zap.String("name", st.Name),
			zap.String("status", string(st.Status)),
			zap.Int("matches", st.Matches),
		)
	}
	if err != nil {
		res.Err = err
		log.Warn("plan aborted, file left untouched", zap.Error(err))
		p.record(ctx, res, pl, doc, doc, started, opts)
		return res, err
	}

	if report.Changed {
		res.Stats = diff.Count(doc.Text, out.Text)
		if opts.Diff || opts.DryRun {
			res.Diff = diff.Unified(path, doc.Text, out.Text)
		}
	}

	if report.Changed && !opts.DryRun {
		if err := rewriter.Commit(path, out); err != nil {
			res.Err = err
			log.Error("commit failed", zap.Error(err))
			p.record(ctx, res, pl, doc, doc, started, opts)
			return res, err
		}
		res.Committed = true
	}

	log.Info("patched",
		zap.Bool("changed", report.Changed),
		zap.Bool("committed", res.Committed),
		zap.Int("lines_before", report.LinesBefore),
		zap.Int("lines_after", report.LinesAfter),
	)
	p.record(ctx, res, pl, doc, out, started, opts)
	return res, nil
}

// PatchTree applies pl to every file c selects under root. A failure on one
// file does not stop the others; the joined per-file errors are returned
// together with all results.
func (p *Patcher) PatchTree(ctx context.Context, root string, c *crawler.Crawler, pl *plan.Plan, opts RunOptions) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	walkErr := c.ScanProject(root, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.PatchFile(ctx, path, pl, opts)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return results, errors.Join(errs...)
}

// PatchFiles applies pl to each path in order, continuing past failures.
func (p *Patcher) PatchFiles(ctx context.Context, paths []string, pl *plan.Plan, opts RunOptions) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := p.PatchFile(ctx, path, pl, opts)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return results, errors.Join(errs...)
}

func (p *Patcher) record(ctx context.Context, res *Result, pl *plan.Plan, before, after document.Document, started time.Time, opts RunOptions) {
	if p.journal == nil {
		return
	}

	run := &storage.Run{
		Batch:     p.batch,
		Path:      res.Path,
		Plan:      pl.Name,
		StartedAt: started,
		DryRun:    opts.DryRun,
		Changed:   res.Committed || (opts.DryRun && res.Report != nil && res.Report.Changed),
	}
	switch {
	case res.Err != nil:
		run.Status = RunFailed
		run.Error = res.Err.Error()
	case opts.DryRun:
		run.Status = RunDryRun
	case res.Committed:
		run.Status = RunApplied
	default:
		run.Status = RunUnchanged
	}
	if r := res.Report; r != nil {
		run.BytesBefore, run.BytesAfter = r.BytesBefore, r.BytesAfter
		run.LinesBefore, run.LinesAfter = r.LinesBefore, r.LinesAfter
		run.LineEnding = r.LineEnding.String()
		for _, st := range r.Steps {
			rec := storage.StepRecord{
				Index:   st.Index,
				Name:    st.Name,
				Kind:    string(st.Kind),
				Status:  string(st.Status),
				Matches: st.Matches,
			}
			if st.Err != nil {
				rec.Error = st.Err.Error()
			}
			run.Steps = append(run.Steps, rec)
		}
	}
	if before.Text != "" || after.Text != "" {
		run.HashBefore = hash(before.Bytes())
		run.HashAfter = hash(after.Bytes())
	}
	if res.Err != nil {
		// Nothing was written.
		run.BytesAfter, run.LinesAfter = run.BytesBefore, run.LinesBefore
	}

	id, err := p.journal.RecordRun(ctx, run)
	if err != nil {
		p.logger.Warn("failed to journal run", zap.String("path", res.Path), zap.Error(err))
		return
	}
	res.RunID = id
}

func hash(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}
