package annotation

import "covannot/internal/diag"

// Transition advances the region state machine by one line.
//
// region is the annotation of the currently open region, mark the marker on
// the line, and unreachable whether the line holds an unreachable-code token.
// A single-line marker repeating the kind of the open region (including
// TESTED outside any region) is redundant.
// It returns the line's resolved annotation, the region for the next line, and
// the kind of malformed-usage issue detected ("" when none). Regions do not
// nest: a BEGIN inside an open region and an END that does not close the open
// region are both ignored.
func Transition(region LineAnnotation, mark LineMark, unreachable bool) (line, next LineAnnotation, issue diag.Kind) {
	kind := mark.Kind()

	switch mark.Scope() {
	case ScopeLine:
		if region.Kind == kind {
			return Explicit(kind), Implicit(kind), diag.KindRedundant
		}
		return Explicit(kind), region, ""

	case ScopeBegin:
		if region.Kind != Tested {
			return region, region, diag.KindNestedBegin
		}
		return Implicit(kind), Implicit(kind), ""

	case ScopeEnd:
		if region.Kind != kind {
			return region, region, diag.KindNestedEnd
		}
		return Implicit(kind), Default, ""

	case ScopeFile:
		return region, region, ""

	default:
		if unreachable {
			return Implicit(NotTested), region, ""
		}
		return region, region, ""
	}
}

// issueMessage renders the diagnostic text for a Transition issue.
func issueMessage(issue diag.Kind, mark LineMark) string {
	switch issue {
	case diag.KindRedundant:
		return "redundant " + mark.String() + " coverage annotation"
	case diag.KindNestedBegin, diag.KindNestedEnd:
		return "ignored nested " + mark.String() + " coverage annotation"
	default:
		return string(issue) + " " + mark.String() + " coverage annotation"
	}
}
