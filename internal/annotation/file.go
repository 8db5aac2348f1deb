package annotation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"covannot/internal/diag"
)

const maxLineBytes = 4 * 1024 * 1024

// Options configures a Scanner.
type Options struct {
	Policy FlakyPolicy
	// UnreachableMarkers override DefaultUnreachableMarkers when non-nil.
	UnreachableMarkers []string
}

// Scanner computes FileAnnotations for source files. It holds no per-file
// state and may be reused.
type Scanner struct {
	policy      FlakyPolicy
	unreachable []string
}

// NewScanner creates a scanner.
func NewScanner(opts Options) *Scanner {
	markers := opts.UnreachableMarkers
	if markers == nil {
		markers = DefaultUnreachableMarkers
	}
	return &Scanner{
		policy:      opts.Policy,
		unreachable: markers,
	}
}

// ScanFile reads and scans the file at path. path is used verbatim in
// diagnostics.
func (s *Scanner) ScanFile(path string) (FileAnnotations, []diag.Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileAnnotations{}, nil, err
	}
	defer f.Close()

	return s.ScanReader(path, f)
}

// fileMarks records which file-level markers a file carries.
type fileMarks struct {
	seen              bool
	maybe, not, flaky bool
}

// ScanReader scans source text read from r.
func (s *Scanner) ScanReader(path string, r io.Reader) (FileAnnotations, []diag.Diagnostic, error) {
	var (
		diags  []diag.Diagnostic
		lines  []LineAnnotation
		marks  fileMarks
		region = Default
		lineNo int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		lineNo++
		text := strings.TrimSuffix(sc.Text(), "\r")

		mark, deprecated := ExtractMark(path, lineNo, text)
		if deprecated != nil {
			diags = append(diags, *deprecated)
		}

		if mark.Scope() == ScopeFile {
			if marks.seen {
				diags = append(diags, diag.New(path, lineNo, diag.KindRepeatedFile,
					"repeated %s coverage annotation", mark))
			}
			marks.seen = true
			switch mark.Kind() {
			case MaybeTested:
				marks.maybe = true
			case NotTested:
				marks.not = true
			case FlakyTested:
				marks.flaky = true
			}
		}

		line, next, issue := Transition(region, mark, mark == MarkNone && containsAny(text, s.unreachable))
		if issue != "" {
			diags = append(diags, diag.New(path, lineNo, issue, "%s", issueMessage(issue, mark)))
		}
		if IsUntrusted(text) {
			line = Implicit(MaybeTested)
		}

		lines = append(lines, line)
		region = next
	}
	if err := sc.Err(); err != nil {
		return FileAnnotations{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	verdict, word := s.verdict(marks)
	if verdict == VerdictLines {
		return FileAnnotations{Verdict: VerdictLines, Lines: lines}, diags, nil
	}

	for i, line := range lines {
		if line.Explicit {
			diags = append(diags, diag.New(path, i+1, diag.KindLineInUntestedFile,
				"line coverage annotation in a FILE which is %s", word))
		}
	}
	return FileAnnotations{Verdict: verdict}, diags, nil
}

// verdict collapses the file-level markers. MAYBE wins over NOT; a FLAKY
// marker follows the policy and is ignored under PolicyTested.
func (s *Scanner) verdict(m fileMarks) (Verdict, string) {
	switch {
	case m.maybe:
		return VerdictMaybeTested, MaybeTested.String()
	case m.flaky && s.policy == PolicyMaybeTested:
		return VerdictMaybeTested, FlakyTested.String()
	case m.not:
		return VerdictNotTested, NotTested.String()
	case m.flaky && s.policy == PolicyNotTested:
		return VerdictNotTested, FlakyTested.String()
	default:
		return VerdictLines, ""
	}
}
