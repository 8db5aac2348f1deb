// Package annotation derives per-line coverage annotations from the
// TESTED / MAYBE TESTED / NOT TESTED / FLAKY TESTED comments in a source file.
//
// A file is scanned line by line. Each line's explicit marker (if any) is fed,
// together with the currently open region, through a pure transition function;
// structural lines that coverage tools report unreliably are then downgraded to
// MaybeTested. File-level markers collapse the whole file to a single verdict.
package annotation

import (
	"fmt"
	"strings"
)

// Kind is the coverage expectation of a line.
type Kind int

const (
	Tested Kind = iota
	MaybeTested
	NotTested
	FlakyTested
)

var kindNames = [...]string{
	Tested:      "TESTED",
	MaybeTested: "MAYBE TESTED",
	NotTested:   "NOT TESTED",
	FlakyTested: "FLAKY TESTED",
}

// String returns the annotation token for the kind, e.g. "NOT TESTED".
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// LineAnnotation is the resolved annotation of one line. Explicit is true
// only when the line itself carried a single-line marker.
type LineAnnotation struct {
	Kind     Kind
	Explicit bool
}

// Default is the annotation of a line outside any region.
var Default = LineAnnotation{Kind: Tested}

// Implicit returns a non-explicit annotation of the given kind.
func Implicit(k Kind) LineAnnotation {
	return LineAnnotation{Kind: k}
}

// Explicit returns an explicit annotation of the given kind.
func Explicit(k Kind) LineAnnotation {
	return LineAnnotation{Kind: k, Explicit: true}
}

func (a LineAnnotation) String() string {
	if a.Explicit {
		return a.Kind.String() + "(explicit)"
	}
	return a.Kind.String()
}

// Verdict is the whole-file outcome of a scan.
type Verdict int

const (
	// VerdictLines means the file is checked line by line.
	VerdictLines Verdict = iota
	VerdictMaybeTested
	VerdictNotTested
)

func (v Verdict) String() string {
	switch v {
	case VerdictMaybeTested:
		return "FILE MAYBE TESTED"
	case VerdictNotTested:
		return "FILE NOT TESTED"
	default:
		return "LINES"
	}
}

// FileAnnotations is the scan result of one file. Lines is populated only
// when Verdict is VerdictLines; Lines[0] is line 1.
type FileAnnotations struct {
	Verdict Verdict
	Lines   []LineAnnotation
}

// FlakyPolicy decides how FLAKY TESTED lines, regions and files are checked.
type FlakyPolicy int

const (
	// PolicyMaybeTested never reports flaky lines.
	PolicyMaybeTested FlakyPolicy = iota
	// PolicyNotTested checks flaky lines as NOT TESTED.
	PolicyNotTested
	// PolicyTested checks flaky lines as TESTED.
	PolicyTested
)

// DefaultFlakyPolicy is used when no policy is configured.
const DefaultFlakyPolicy = PolicyMaybeTested

// String returns the configuration name of the policy.
func (p FlakyPolicy) String() string {
	switch p {
	case PolicyNotTested:
		return "not-tested"
	case PolicyTested:
		return "tested"
	default:
		return "maybe-tested"
	}
}

// ParseFlakyPolicy parses a policy name. Case and '-'/'_' separators are ignored.
func ParseFlakyPolicy(s string) (FlakyPolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "maybe-tested", "maybe":
		return PolicyMaybeTested, nil
	case "not-tested", "not":
		return PolicyNotTested, nil
	case "tested":
		return PolicyTested, nil
	default:
		return DefaultFlakyPolicy, fmt.Errorf("unknown flaky policy %q (want not-tested, maybe-tested or tested)", s)
	}
}

// FlakyPolicyNames lists the accepted policy names.
var FlakyPolicyNames = []string{"not-tested", "maybe-tested", "tested"}
