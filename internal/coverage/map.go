package coverage

import "sort"

// Map is the merged coverage of a run, keyed by canonical file path.
type Map map[string]FileLines

// Paths returns the file paths in sorted order.
func (m Map) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Lines returns the line table of path, creating it if needed.
func (m Map) Lines(path string) FileLines {
	lines, ok := m[path]
	if !ok {
		lines = make(FileLines)
		m[path] = lines
	}
	return lines
}

// Merge joins other into m.
func (m Map) Merge(other Map) {
	for path, lines := range other {
		dst := m.Lines(path)
		for n, hit := range lines {
			s := Miss
			if hit {
				s = Hit
			}
			dst.Set(n, s)
		}
	}
}

// Stats summarises a map for logging.
func (m Map) Stats() (files, lines, hit int) {
	for _, fl := range m {
		files++
		for _, h := range fl {
			lines++
			if h {
				hit++
			}
		}
	}
	return files, lines, hit
}
