// Package crosscheck compares resolved source annotations against a merged
// coverage map and reports every disagreement.
package crosscheck

import (
	"sort"

	"go.uber.org/zap"

	"covannot/internal/annotation"
	"covannot/internal/coverage"
	"covannot/internal/diag"
	"covannot/internal/workspace"
)

// Options configures a cross-check.
type Options struct {
	// TrackedRoots are absolute directories; files outside all of them are
	// not checked. An empty list tracks everything.
	TrackedRoots []string
	Policy       annotation.FlakyPolicy
	Logger       *zap.Logger
}

// Report is the outcome of a cross-check.
type Report struct {
	Diagnostics []diag.Diagnostic
	Checked     int
}

// Failed reports whether any diagnostic is an error.
func (r Report) Failed() bool {
	return diag.HasErrors(r.Diagnostics)
}

// Check visits every file known to either cov or files, in path order.
func Check(cov coverage.Map, files map[string]annotation.FileAnnotations, opts Options) Report {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var report Report
	for _, path := range unionPaths(cov, files) {
		if !tracked(path, opts.TrackedRoots) {
			continue
		}
		fa, annotated := files[path]
		lines, covered := cov[path]
		if !annotated {
			logger.Debug("coverage for unscanned file", zap.String("path", path))
			continue
		}
		report.Checked++
		if covered {
			report.Diagnostics = append(report.Diagnostics, checkFile(path, fa, lines, opts.Policy)...)
		} else {
			report.Diagnostics = append(report.Diagnostics, checkUncovered(path, fa)...)
		}
	}
	return report
}

func checkFile(path string, fa annotation.FileAnnotations, cov coverage.FileLines, policy annotation.FlakyPolicy) []diag.Diagnostic {
	switch fa.Verdict {
	case annotation.VerdictMaybeTested:
		return nil
	case annotation.VerdictNotTested:
		if cov.Executed() {
			return []diag.Diagnostic{diag.New(path, 0, diag.KindWrongFileNotTested,
				"wrong FILE NOT TESTED coverage annotation")}
		}
		return nil
	}

	var out []diag.Diagnostic
	for i, line := range fa.Lines {
		n := i + 1
		switch cov.State(n) {
		case coverage.Miss:
			if effective(line.Kind, policy) == annotation.Tested {
				out = append(out, diag.New(path, n, diag.KindWrongTested,
					"wrong TESTED coverage annotation"))
			}
		case coverage.Hit:
			if effective(line.Kind, policy) == annotation.NotTested {
				out = append(out, diag.New(path, n, diag.KindWrongNotTested,
					"wrong NOT TESTED coverage annotation"))
			}
		case coverage.Absent:
			if line.Explicit && line.Kind != annotation.FlakyTested {
				out = append(out, diag.New(path, n, diag.KindNonExecutable,
					"explicit %s coverage annotation for a non-executable line", line.Kind))
			}
		}
	}
	return out
}

func checkUncovered(path string, fa annotation.FileAnnotations) []diag.Diagnostic {
	if fa.Verdict != annotation.VerdictLines {
		return nil
	}
	return []diag.Diagnostic{diag.New(path, 0, diag.KindMissingFileNotTested,
		"missing FILE NOT TESTED coverage annotation")}
}

// effective maps FlakyTested through the policy. The other kinds are
// returned unchanged; MaybeTested is never checked.
func effective(k annotation.Kind, policy annotation.FlakyPolicy) annotation.Kind {
	if k != annotation.FlakyTested {
		return k
	}
	switch policy {
	case annotation.PolicyTested:
		return annotation.Tested
	case annotation.PolicyNotTested:
		return annotation.NotTested
	default:
		return annotation.MaybeTested
	}
}

func tracked(path string, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		if workspace.IsUnder(path, root) {
			return true
		}
	}
	return false
}

func unionPaths(cov coverage.Map, files map[string]annotation.FileAnnotations) []string {
	seen := make(map[string]struct{}, len(cov)+len(files))
	for p := range cov {
		seen[p] = struct{}{}
	}
	for p := range files {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
