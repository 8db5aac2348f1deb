package annotation

import (
	"regexp"
	"strings"
)

// Structural lines that coverage tools frequently skip or report spuriously.
var untrustedPatterns = []*regexp.Regexp{
	// bare closing brace, optionally closing calls/literals, with a terminator
	regexp.MustCompile(`^\s*\}[\s)\]}]*[;,]?\s*$`),
	// bare else, optionally brace-prefixed
	regexp.MustCompile(`^\s*(\}\s*)?else(\s*\{)?\s*$`),
	// attributes and annotations
	regexp.MustCompile(`^\s*#!?\[.*\]\s*$`),
	regexp.MustCompile(`^\s*@[A-Za-z_][\w.]*(\(.*\))?\s*$`),
	// generic implementation headers
	regexp.MustCompile(`^\s*(unsafe\s+)?impl\s*<`),
	// type declaration headers
	regexp.MustCompile(`^\s*(pub(\([^)]*\))?\s+)?(struct|enum|trait|union)\s+\w+.*\{\s*$`),
	regexp.MustCompile(`^\s*type\s+\w+(\[.*\])?\s+(struct|interface)\s*\{\s*$`),
	// comment-only lines
	regexp.MustCompile(`^\s*(//|/\*)`),
	// block comment bodies: a lone star, a closing star-slash, or a starred
	// line that closes the comment
	regexp.MustCompile(`^\s*\*(/|\s*$|\s+\S.*\*/)`),
}

// IsUntrusted reports whether a raw source line is structural noise whose
// coverage data should not be trusted either way.
func IsUntrusted(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, re := range untrustedPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DefaultUnreachableMarkers are tokens that mark code as unreachable.
var DefaultUnreachableMarkers = []string{
	"unreachable!(",
	`panic("unreachable")`,
}

func containsAny(text string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(text, tok) {
			return true
		}
	}
	return false
}
