package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"docpatch/internal/config"
	"docpatch/internal/crawler"
	"docpatch/internal/editor"
	"docpatch/internal/git"
	"docpatch/internal/logging"
	"docpatch/internal/patcher"
	"docpatch/internal/plan"
	"docpatch/internal/rewriter"
	"docpatch/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// app holds what every command needs once flags are parsed.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	store  *storage.SQLiteStore
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "docpatch",
		Short:         "Marker-delimited structural patching for source files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Path to the docpatch config file")
	rootCmd.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "Path to the run journal database (SQLite); overrides journal.path")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newApplyCmd(a))
	rootCmd.AddCommand(newLocateCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	a.logger, err = logging.New(cfg.Logging.Level, a.verbose)
	if err != nil {
		return err
	}
	return nil
}

// journal opens the run journal, or returns nil when journaling is off.
func (a *app) journal() (*storage.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.cfg.Journal.Path
	if a.dbPath != "" {
		path = a.dbPath
	} else if !a.cfg.Journal.Enabled {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	a.store = store
	return store, nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

type applyFlags struct {
	dryRun   bool
	showDiff bool
	noGuard  bool
	include  []string
	changed  string
}

func newApplyCmd(a *app) *cobra.Command {
	var f applyFlags
	cmd := &cobra.Command{
		Use:   "apply <plan.yaml> [file|dir ...]",
		Short: "Apply an edit plan to files, all-or-nothing per file",
		Long: `Loads a YAML edit plan and applies it to each target file.

Targets are the given paths, or the plan's "files" list when none are given.
Directories are crawled for files matching --include (or crawl.include).
A file is only rewritten when every step succeeds; otherwise it is left
byte-for-byte untouched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd.Context(), cmd.OutOrStdout(), args[0], args[1:], f)
		},
	}
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "Compute and report without writing files")
	cmd.Flags().BoolVar(&f.showDiff, "diff", false, "Print a unified diff of each change")
	cmd.Flags().BoolVar(&f.noGuard, "no-syntax-guard", false, "Skip the tree-sitter check of patched output")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Glob patterns selecting files when crawling directories")
	cmd.Flags().StringVar(&f.changed, "changed", "", "Only patch files changed since this git ref")
	return cmd
}

func (a *app) runApply(ctx context.Context, out io.Writer, planPath string, targets []string, f applyFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pl, err := plan.Load(planPath)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	if pl.Name == "" {
		pl.Name = strings.TrimSuffix(filepath.Base(planPath), filepath.Ext(planPath))
	}
	if len(targets) == 0 {
		for _, file := range pl.Files {
			if !filepath.IsAbs(file) {
				file = filepath.Join(filepath.Dir(planPath), file)
			}
			targets = append(targets, file)
		}
	}
	if len(targets) == 0 {
		return errors.New("no target files: pass paths or set files in the plan")
	}

	seam, err := editor.ParseSeam(a.cfg.Patch.DefaultSeam, editor.SeamBlankLine)
	if err != nil {
		return fmt.Errorf("patch.default_seam: %w", err)
	}
	opts := []patcher.Option{
		patcher.WithDefaultSeam(seam),
		patcher.WithSyntaxGuard(a.cfg.Patch.SyntaxGuard && !f.noGuard),
	}
	store, err := a.journal()
	if err != nil {
		return err
	}
	if store != nil {
		opts = append(opts, patcher.WithJournal(store))
	}
	p := patcher.NewPatcher(a.logger, opts...)
	runOpts := patcher.RunOptions{DryRun: f.dryRun, Diff: f.showDiff}

	include := f.include
	if len(include) == 0 {
		include = a.cfg.Crawl.Include
	}
	cr := crawler.NewCrawler(include, a.cfg.Crawl.Ignore)

	var changedSet map[string]bool
	if f.changed != "" {
		changedSet = make(map[string]bool)
		files, err := git.ChangedFiles(ctx, ".", f.changed)
		if err != nil {
			return err
		}
		for _, file := range files {
			changedSet[realPath(file)] = true
		}
		fmt.Fprintf(out, "📝 %d files changed since %s\n", len(files), f.changed)
	}

	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("target %s: %w", target, err)
		}
		if !info.IsDir() {
			files = append(files, target)
			continue
		}
		if err := cr.ScanProject(target, func(path string) error {
			files = append(files, path)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to crawl %s: %w", target, err)
		}
	}
	if changedSet != nil {
		kept := files[:0]
		for _, file := range files {
			if changedSet[realPath(file)] {
				kept = append(kept, file)
			}
		}
		files = kept
	}

	mode := "Applying"
	if f.dryRun {
		mode = "Dry-running"
	}
	fmt.Fprintf(out, "🔧 %s plan %q (%d steps) on %d file(s)\n", mode, pl.Name, len(pl.Steps), len(files))

	results, err := p.PatchFiles(ctx, files, pl, runOpts)
	var changed, unchanged, failed int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(out, "❌ %s: %v\n", res.Path, res.Err)
		case res.Report.Changed:
			changed++
			verb := "patched"
			if f.dryRun {
				verb = "would patch"
			}
			fmt.Fprintf(out, "✅ %s %s: %d → %d lines (+%d -%d)%s\n", verb, res.Path,
				res.Report.LinesBefore, res.Report.LinesAfter, res.Stats.Added, res.Stats.Removed, stepSummary(res.Report))
		default:
			unchanged++
			fmt.Fprintf(out, "⏭️  %s: nothing to change%s\n", res.Path, stepSummary(res.Report))
		}
		if res.Diff != "" {
			fmt.Fprint(out, res.Diff)
		}
	}
	fmt.Fprintf(out, "🎉 Done: %d changed, %d unchanged, %d failed (batch %s)\n", changed, unchanged, failed, shortID(p.Batch()))
	if err != nil {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func stepSummary(r *rewriter.Report) string {
	var notFound []string
	for _, st := range r.Steps {
		if st.Status == rewriter.StatusNotFound {
			notFound = append(notFound, st.Name)
		}
	}
	if len(notFound) == 0 {
		return ""
	}
	return fmt.Sprintf(" [not found: %s]", strings.Join(notFound, ", "))
}

func newLocateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <plan.yaml> <file>",
		Short: "Show where each plan step would act, without editing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := plan.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load plan: %w", err)
			}
			doc, err := rewriter.Load(args[1])
			if err != nil {
				return err
			}
			locs, err := patcher.Locate(doc, pl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🔍 %s (%d lines, %s)\n", args[1], doc.Lines(), doc.LineEnding)
			if len(locs) == 0 {
				fmt.Fprintln(out, "  -> no sections found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, l := range locs {
				fmt.Fprintf(w, "  %d\t%s\t%s\tL%d-%d\t%s\n", l.Step+1, l.Name, l.Kind, l.StartLine, l.EndLine, firstLine(l.Marker))
			}
			return w.Flush()
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "List journaled runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.journal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "⚠️  Journal is disabled (journal.enabled: false)")
				return nil
			}

			var path string
			if len(args) > 0 {
				path = args[0]
			}
			runs, err := store.ListRuns(cmd.Context(), path, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "✅ No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range runs {
				fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\t%s\t%d → %d lines\n",
					r.ID, shortID(r.Batch), r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Plan, r.Path, r.LinesBefore, r.LinesAfter)
				if r.Error != "" {
					fmt.Fprintf(w, "\t\t\t\t\t  ↳ %s\t\n", r.Error)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

// realPath resolves path to an absolute path without symlinks, so paths
// reported by git compare equal to the ones given on the command line.
func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
