package annotation

import (
	"strings"

	"covannot/internal/diag"
)

// LineMark is the explicit marker found on a line.
type LineMark int

const (
	MarkNone LineMark = iota
	MarkLineTested
	MarkLineMaybeTested
	MarkLineNotTested
	MarkLineFlakyTested
	MarkBeginMaybeTested
	MarkBeginNotTested
	MarkBeginFlakyTested
	MarkEndMaybeTested
	MarkEndNotTested
	MarkEndFlakyTested
	MarkFileMaybeTested
	MarkFileNotTested
	MarkFileFlakyTested
)

// Scope is the extent a marker applies to.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeLine
	ScopeBegin
	ScopeEnd
	ScopeFile
)

var markInfo = [...]struct {
	scope Scope
	kind  Kind
	text  string
}{
	MarkNone:             {ScopeNone, Tested, ""},
	MarkLineTested:       {ScopeLine, Tested, "TESTED"},
	MarkLineMaybeTested:  {ScopeLine, MaybeTested, "MAYBE TESTED"},
	MarkLineNotTested:    {ScopeLine, NotTested, "NOT TESTED"},
	MarkLineFlakyTested:  {ScopeLine, FlakyTested, "FLAKY TESTED"},
	MarkBeginMaybeTested: {ScopeBegin, MaybeTested, "BEGIN MAYBE TESTED"},
	MarkBeginNotTested:   {ScopeBegin, NotTested, "BEGIN NOT TESTED"},
	MarkBeginFlakyTested: {ScopeBegin, FlakyTested, "BEGIN FLAKY TESTED"},
	MarkEndMaybeTested:   {ScopeEnd, MaybeTested, "END MAYBE TESTED"},
	MarkEndNotTested:     {ScopeEnd, NotTested, "END NOT TESTED"},
	MarkEndFlakyTested:   {ScopeEnd, FlakyTested, "END FLAKY TESTED"},
	MarkFileMaybeTested:  {ScopeFile, MaybeTested, "FILE MAYBE TESTED"},
	MarkFileNotTested:    {ScopeFile, NotTested, "FILE NOT TESTED"},
	MarkFileFlakyTested:  {ScopeFile, FlakyTested, "FILE FLAKY TESTED"},
}

// Scope returns the extent of the marker.
func (m LineMark) Scope() Scope {
	if m < 0 || int(m) >= len(markInfo) {
		return ScopeNone
	}
	return markInfo[m].scope
}

// Kind returns the annotation kind the marker declares.
func (m LineMark) Kind() Kind {
	if m < 0 || int(m) >= len(markInfo) {
		return Tested
	}
	return markInfo[m].kind
}

// String returns the marker token, e.g. "BEGIN NOT TESTED".
func (m LineMark) String() string {
	if m < 0 || int(m) >= len(markInfo) || m == MarkNone {
		return "NONE"
	}
	return markInfo[m].text
}

type markRule struct {
	token string
	mark  LineMark
	// replacement is set for deprecated tokens, which yield no mark.
	replacement string
}

// markRules is evaluated in order; the first matching rule wins. Tokens that
// contain other tokens come first.
var markRules = []markRule{
	{token: "FILE APPEARS NOT TESTED", replacement: "FILE FLAKY TESTED"},
	{token: "BEGIN APPEARS NOT TESTED", replacement: "BEGIN FLAKY TESTED"},
	{token: "END APPEARS NOT TESTED", replacement: "END FLAKY TESTED"},
	{token: "APPEARS NOT TESTED", replacement: "FLAKY TESTED"},
	{token: "FILE MAYBE TESTED", mark: MarkFileMaybeTested},
	{token: "FILE NOT TESTED", mark: MarkFileNotTested},
	{token: "FILE FLAKY TESTED", mark: MarkFileFlakyTested},
	{token: "BEGIN MAYBE TESTED", mark: MarkBeginMaybeTested},
	{token: "BEGIN NOT TESTED", mark: MarkBeginNotTested},
	{token: "BEGIN FLAKY TESTED", mark: MarkBeginFlakyTested},
	{token: "END MAYBE TESTED", mark: MarkEndMaybeTested},
	{token: "END NOT TESTED", mark: MarkEndNotTested},
	{token: "END FLAKY TESTED", mark: MarkEndFlakyTested},
	{token: "MAYBE TESTED", mark: MarkLineMaybeTested},
	{token: "NOT TESTED", mark: MarkLineNotTested},
	{token: "FLAKY TESTED", mark: MarkLineFlakyTested},
	{token: "TESTED", mark: MarkLineTested},
}

var commentOpeners = []string{"// ", "/* "}

func hasCommentToken(text, token string) bool {
	for _, opener := range commentOpeners {
		if strings.Contains(text, opener+token) {
			return true
		}
	}
	return false
}

// ExtractMark classifies one line of text. path and lineNo are only used to
// locate the diagnostic returned for deprecated tokens.
func ExtractMark(path string, lineNo int, text string) (LineMark, *diag.Diagnostic) {
	if !strings.Contains(text, "TESTED") {
		return MarkNone, nil
	}
	for _, rule := range markRules {
		if !hasCommentToken(text, rule.token) {
			continue
		}
		if rule.replacement != "" {
			d := diag.New(path, lineNo, diag.KindDeprecatedToken,
				"deprecated %s coverage annotation, use %s instead", rule.token, rule.replacement)
			return MarkNone, &d
		}
		return rule.mark, nil
	}
	return MarkNone, nil
}
