package workspace

import (
	"path"
	"path/filepath"
	"strings"
)

// ScannerConfig controls which files discovery considers.
type ScannerConfig struct {
	// IgnorePatterns skips matching paths/dirs (relative to the project root).
	// Supports simple dir names (e.g., "target") and glob patterns (e.g., "vendor/*").
	IgnorePatterns []string
	// Extensions selects annotated source files, e.g. ".go".
	Extensions []string
	// ReportNames selects coverage reports by base name, e.g. "cobertura.xml".
	ReportNames []string
}

// DefaultScannerConfig returns the defaults used when nothing is configured.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		IgnorePatterns: []string{
			".git",
			"node_modules",
			"vendor",
			".venv",
			".cache",
		},
		Extensions:  []string{".go", ".rs"},
		ReportNames: []string{"cobertura.xml"},
	}
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isIgnoredRel reports whether a relative path should be ignored.
func isIgnoredRel(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		// Glob pattern
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if ok, _ := path.Match(p, name); ok {
				return true
			}
			// Handle directory globs like "vendor/*"
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		// Simple dir/file name
		if name == p || rel == p {
			return true
		}
		// Prefix match for nested paths
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

func (c ScannerConfig) isSource(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range c.Extensions {
		if ext != "" && ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (c ScannerConfig) isReport(name string) bool {
	for _, want := range c.ReportNames {
		if name == want {
			return true
		}
	}
	return false
}
