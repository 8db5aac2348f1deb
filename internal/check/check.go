// Package check runs one full reconciliation of a project: discover sources
// and reports, scan annotations, merge coverage, cross-check.
package check

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"covannot/internal/annotation"
	"covannot/internal/config"
	"covannot/internal/coverage"
	"covannot/internal/crosscheck"
	"covannot/internal/diag"
	"covannot/internal/logging"
	"covannot/internal/workspace"
)

// ErrNoReport is returned when the project holds no coverage report.
var ErrNoReport = errors.New("no coverage report found")

// slowRun is the duration above which a run is logged as slow.
const slowRun = 10 * time.Second

// Result is the outcome of one run.
type Result struct {
	RunID string
	// Diagnostics holds scan diagnostics in discovery order followed by
	// cross-check diagnostics in path order. Paths are project-relative.
	Diagnostics []diag.Diagnostic
	Sources     int
	Reports     []string
}

// Failed reports whether the run found any inconsistency.
func (r *Result) Failed() bool {
	return diag.HasErrors(r.Diagnostics)
}

// Runner performs checks for one project directory.
type Runner struct {
	dir    string
	cfg    *config.Config
	logger *zap.Logger

	ws      *workspace.Scanner
	scanner *annotation.Scanner
}

// NewRunner creates a runner. A nil cfg uses the defaults.
func NewRunner(dir string, cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := workspace.Canonicalize(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory %s: %w", dir, err)
	}
	return &Runner{
		dir:    root,
		cfg:    cfg,
		logger: logger,
		ws:     workspace.NewScanner(cfg.ScannerConfig()),
		scanner: annotation.NewScanner(annotation.Options{
			Policy:             cfg.Policy(),
			UnreachableMarkers: cfg.UnreachableMarkers,
		}),
	}, nil
}

// Dir returns the canonical project directory.
func (r *Runner) Dir() string {
	return r.dir
}

// Workspace returns the discovery scanner used by the runner.
func (r *Runner) Workspace() *workspace.Scanner {
	return r.ws
}

// Run performs one check. Structural failures (unreadable files, malformed
// or missing reports, unresolvable sources) are returned as errors and no
// diagnostics are reported for the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := logging.WithRunID(r.logger, runID)
	timer := logging.StartTimer(logging.For(logger, logging.CategoryCheck), "check")
	defer timer.StopWithThreshold(slowRun)

	inv, err := r.ws.Discover(ctx, r.dir)
	if err != nil {
		return nil, err
	}
	if len(inv.Reports) == 0 {
		return nil, fmt.Errorf("%w under %s (looked for %s)", ErrNoReport, r.dir,
			strings.Join(r.cfg.ReportNames, ", "))
	}

	result := &Result{RunID: runID, Sources: len(inv.Sources)}

	scanLogger := logging.For(logger, logging.CategoryScan)
	scanTimer := logging.StartTimer(scanLogger, "scan")
	files, diags, err := r.scan(ctx, inv, scanLogger)
	if err != nil {
		return nil, err
	}
	scanTimer.Stop()
	result.Diagnostics = append(result.Diagnostics, diags...)

	covLogger := logging.For(logger, logging.CategoryCoverage)
	ingestTimer := logging.StartTimer(covLogger, "ingest")
	cov, err := r.ingest(ctx, inv, covLogger)
	if err != nil {
		return nil, err
	}
	ingestTimer.Stop()
	for _, report := range inv.Reports {
		result.Reports = append(result.Reports, r.rel(report))
	}

	checkLogger := logging.For(logger, logging.CategoryCheck)
	report := crosscheck.Check(cov, files, crosscheck.Options{
		TrackedRoots: r.cfg.AbsTrackedRoots(r.dir),
		Policy:       r.cfg.Policy(),
		Logger:       checkLogger,
	})
	for _, d := range report.Diagnostics {
		d.Path = r.rel(d.Path)
		result.Diagnostics = append(result.Diagnostics, d)
	}

	warnings, errs := diag.Count(result.Diagnostics)
	checkLogger.Info("check finished",
		zap.Int("sources", result.Sources),
		zap.Int("reports", len(result.Reports)),
		zap.Int("checked", report.Checked),
		zap.Int("warnings", warnings),
		zap.Int("errors", errs),
		zap.Bool("failed", result.Failed()))
	return result, nil
}

func (r *Runner) scan(ctx context.Context, inv *workspace.Inventory, logger *zap.Logger) (map[string]annotation.FileAnnotations, []diag.Diagnostic, error) {
	files := make(map[string]annotation.FileAnnotations, len(inv.Sources))
	var diags []diag.Diagnostic
	for _, path := range inv.Sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fa, fileDiags, err := r.scanner.ScanFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("scanning %s: %w", r.rel(path), err)
		}
		for _, d := range fileDiags {
			d.Path = r.rel(d.Path)
			diags = append(diags, d)
		}
		files[path] = fa
		logger.Debug("scanned source",
			zap.String("path", r.rel(path)),
			zap.Stringer("verdict", fa.Verdict),
			zap.Int("lines", len(fa.Lines)),
			zap.Int("diagnostics", len(fileDiags)))
	}
	return files, diags, nil
}

func (r *Runner) ingest(ctx context.Context, inv *workspace.Inventory, logger *zap.Logger) (coverage.Map, error) {
	cov := make(coverage.Map)
	for _, report := range inv.Reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := coverage.NewBuilder(r.dir)
		if err := coverage.ReadReport(report, b); err != nil {
			return nil, err
		}
		fragment := b.Build()
		cov.Merge(fragment)
		logger.Debug("read coverage report",
			zap.String("path", r.rel(report)),
			zap.Int("files", len(fragment)))
	}
	files, lines, hit := cov.Stats()
	logger.Debug("coverage merged",
		zap.Int("files", files),
		zap.Int("lines", lines),
		zap.Int("hit", hit))
	return cov, nil
}

// rel shortens a path for display. Paths outside the project stay absolute.
func (r *Runner) rel(path string) string {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
