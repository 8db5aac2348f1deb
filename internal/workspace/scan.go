// Package workspace discovers annotated source files and coverage reports
// under a project directory.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Inventory is the result of one discovery pass. Paths are canonical and in
// lexical walk order.
type Inventory struct {
	Root    string
	Sources []string
	Reports []string
	Dirs    []string
}

// Scanner walks a project tree.
type Scanner struct {
	cfg ScannerConfig
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	return &Scanner{cfg: cfg}
}

// hidden directories that are still walked
var allowedHidden = map[string]bool{
	".github": true,
	".config": true,
}

// Discover walks root sequentially and collects source files and coverage
// reports. Any unreadable directory aborts the walk.
func (s *Scanner) Discover(ctx context.Context, root string) (*Inventory, error) {
	canonicalRoot, err := Canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	inv := &Inventory{Root: canonicalRoot}

	err = filepath.WalkDir(canonicalRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(canonicalRoot, path)
		if relErr != nil {
			return relErr
		}
		name := d.Name()

		if d.IsDir() {
			if rel == "." {
				inv.Dirs = append(inv.Dirs, path)
				return nil
			}
			if strings.HasPrefix(name, ".") && !allowedHidden[name] {
				return filepath.SkipDir
			}
			if isIgnoredRel(rel, name, s.cfg.IgnorePatterns) {
				return filepath.SkipDir
			}
			inv.Dirs = append(inv.Dirs, path)
			return nil
		}

		if isIgnoredRel(rel, name, s.cfg.IgnorePatterns) {
			return nil
		}

		switch {
		case s.cfg.isReport(name):
			inv.Reports = append(inv.Reports, path)
		case s.cfg.isSource(name):
			canonical, err := Canonicalize(path)
			if err != nil {
				return err
			}
			inv.Sources = append(inv.Sources, canonical)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", canonicalRoot, err)
	}
	return inv, nil
}

// IsWatched reports whether a changed path is relevant to a check: a source
// file or a coverage report that is not ignored.
func (s *Scanner) IsWatched(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	name := filepath.Base(path)
	if isIgnoredRel(rel, name, s.cfg.IgnorePatterns) {
		return false
	}
	return s.cfg.isSource(name) || s.cfg.isReport(name)
}

// IsWatchedDir reports whether a directory under root would be walked by
// Discover.
func (s *Scanner) IsWatchedDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if rel == "." {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && !allowedHidden[part] {
			return false
		}
	}
	return !isIgnoredRel(rel, filepath.Base(path), s.cfg.IgnorePatterns)
}

// Canonicalize returns the absolute, symlink-resolved form of path. It is the
// join key between scanned sources and coverage data.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsUnder reports whether path equals root or lies beneath it. Both must be
// canonical.
func IsUnder(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
