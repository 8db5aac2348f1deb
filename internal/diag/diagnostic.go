// Package diag defines the diagnostics produced while reconciling coverage
// annotations with a coverage report, and prints them.
package diag

import "fmt"

// Kind classifies a diagnostic.
type Kind string

const (
	// Malformed annotation usage
	KindRedundant          Kind = "redundant"
	KindNestedBegin        Kind = "nested_begin"
	KindNestedEnd          Kind = "nested_end"
	KindRepeatedFile       Kind = "repeated_file"
	KindDeprecatedToken    Kind = "deprecated_token"
	KindLineInUntestedFile Kind = "line_in_untested_file"

	// Coverage mismatches
	KindWrongTested          Kind = "wrong_tested"
	KindWrongNotTested       Kind = "wrong_not_tested"
	KindNonExecutable        Kind = "non_executable"
	KindWrongFileNotTested   Kind = "wrong_file_not_tested"
	KindMissingFileNotTested Kind = "missing_file_not_tested"
)

// Severity tells whether a diagnostic fails the run.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Severity returns the severity of diagnostics of this kind.
// Annotation hygiene problems that do not contradict the coverage data are warnings.
func (k Kind) Severity() Severity {
	switch k {
	case KindRedundant, KindNestedBegin, KindNestedEnd, KindRepeatedFile, KindDeprecatedToken:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Diagnostic is a single reported inconsistency.
type Diagnostic struct {
	Path    string
	Line    int // 1-based; 0 for file-level diagnostics
	Kind    Kind
	Message string
}

// New builds a diagnostic for a line. Pass line 0 for a file-level diagnostic.
func New(path string, line int, kind Kind, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Path:    path,
		Line:    line,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Severity returns the severity of the diagnostic's kind.
func (d Diagnostic) Severity() Severity {
	return d.Kind.Severity()
}

// String renders the diagnostic as "path:line: message", or "path: message"
// for file-level diagnostics.
func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", d.Path, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Message)
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity() == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of warnings and errors.
func Count(diags []Diagnostic) (warnings, errors int) {
	for _, d := range diags {
		if d.Severity() == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return warnings, errors
}
