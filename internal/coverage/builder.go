package coverage

import (
	"errors"
	"fmt"
	"path/filepath"

	"covannot/internal/workspace"
)

var (
	// ErrUnresolvedSource is returned when a report names a file that exists
	// under none of its source roots.
	ErrUnresolvedSource = errors.New("unresolvable source file")
	// ErrMalformedReport is returned for reports that cannot be interpreted.
	ErrMalformedReport = errors.New("malformed coverage report")
)

// EventKind identifies a report element.
type EventKind int

const (
	// EventSource declares a source root (<source>path</source>).
	EventSource EventKind = iota
	// EventClass starts a file (<class filename="...">).
	EventClass
	// EventLine records a line (<line number="N" hits="H"/>).
	EventLine
)

// Event is one parsed report element.
type Event struct {
	Kind   EventKind
	Path   string // source root or class filename
	Number int
	Hits   int64
}

// Builder merges report events into a Map. Call BeginFragment before the
// events of each report.
type Builder struct {
	baseDir string
	exists  func(string) bool

	roots   []string
	current FileLines
	files   Map
}

// NewBuilder creates a builder. Relative source roots and filenames are taken
// from baseDir, normally the project root.
func NewBuilder(baseDir string) *Builder {
	return &Builder{
		baseDir: baseDir,
		exists:  workspace.Exists,
		roots:   []string{""},
		files:   make(Map),
	}
}

// BeginFragment starts a new report: the declared roots reset to the project
// root alone and no file is current.
func (b *Builder) BeginFragment() {
	b.roots = []string{""}
	b.current = nil
}

// Source declares a source root for the rest of the fragment.
func (b *Builder) Source(root string) {
	if root == "" {
		return
	}
	b.roots = append(b.roots, root)
}

// Class makes filename the current file.
func (b *Builder) Class(filename string) error {
	path, err := Resolve(b.baseDir, b.roots, filename, b.exists)
	if err != nil {
		return err
	}
	b.current = b.files.Lines(path)
	return nil
}

// Line records the hit count of a line of the current file. Non-positive line
// numbers are ignored.
func (b *Builder) Line(number int, hits int64) error {
	if number <= 0 {
		return nil
	}
	if b.current == nil {
		return fmt.Errorf("%w: line %d outside of a class", ErrMalformedReport, number)
	}
	b.current.Set(number, StateOf(hits))
	return nil
}

// Apply dispatches one event.
func (b *Builder) Apply(ev Event) error {
	switch ev.Kind {
	case EventSource:
		b.Source(ev.Path)
		return nil
	case EventClass:
		return b.Class(ev.Path)
	case EventLine:
		return b.Line(ev.Number, ev.Hits)
	default:
		return fmt.Errorf("%w: unknown event kind %d", ErrMalformedReport, ev.Kind)
	}
}

// Build returns the merged map.
func (b *Builder) Build() Map {
	return b.files
}

// Resolve finds the first root under which filename exists and returns its
// canonical path. Roots are tried in order; relative roots and names are taken
// from baseDir. An absolute filename is checked as is.
func Resolve(baseDir string, roots []string, filename string, exists func(string) bool) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: empty class filename", ErrMalformedReport)
	}

	var candidates []string
	if filepath.IsAbs(filename) {
		candidates = []string{filename}
	} else {
		for _, root := range roots {
			candidate := filepath.Join(root, filepath.FromSlash(filename))
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(baseDir, candidate)
			}
			candidates = append(candidates, candidate)
		}
	}

	for _, candidate := range candidates {
		if !exists(candidate) {
			continue
		}
		canonical, err := workspace.Canonicalize(candidate)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", candidate, err)
		}
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %s (tried %d roots)", ErrUnresolvedSource, filename, len(candidates))
}
