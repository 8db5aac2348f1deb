// Package coverage builds a per-file, per-line hit table from one or more
// Cobertura coverage reports.
package coverage

// State is a line's position in the coverage lattice Absent < Miss < Hit.
// Merging coverage fragments is a join over this lattice, so the result does
// not depend on fragment order: a hit is never downgraded to a miss.
type State int8

const (
	Absent State = iota
	Miss
	Hit
)

func (s State) String() string {
	switch s {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	default:
		return "absent"
	}
}

// Join returns the least upper bound of a and b.
func Join(a, b State) State {
	if a > b {
		return a
	}
	return b
}

// StateOf converts a Cobertura hit count.
func StateOf(hits int64) State {
	if hits == 0 {
		return Miss
	}
	return Hit
}

// FileLines maps a 1-based line number to whether it was hit. Lines without
// an entry are not executable.
type FileLines map[int]bool

// State returns the lattice state of a line.
func (f FileLines) State(line int) State {
	hit, ok := f[line]
	switch {
	case !ok:
		return Absent
	case hit:
		return Hit
	default:
		return Miss
	}
}

// Set joins s into the entry for line.
func (f FileLines) Set(line int, s State) {
	switch Join(f.State(line), s) {
	case Hit:
		f[line] = true
	case Miss:
		f[line] = false
	}
}

// Executed reports whether any line of the file was hit.
func (f FileLines) Executed() bool {
	for _, hit := range f {
		if hit {
			return true
		}
	}
	return false
}
