package bench

import (
	"time"
)

// Measurement is the outcome of one grid cell.
//
// Elapsed is the minimum single-iteration duration observed across the
// cell's repeated timings; the minimum, not the mean, because timing
// noise only ever adds. Loops and Repeats record how the estimate was
// obtained. Memory is nil whenever sampling is disabled or unavailable:
// an absent delta must be distinguishable from a zero one.
//
// A non-nil Err marks an execution failure during the cell's setup or
// timed body; the other fields are zero in that case.
type Measurement struct {
	Elapsed time.Duration
	Loops   int
	Repeats int
	Memory  *MemoryDelta
	Err     error
}

// Failed reports whether the cell's execution failed.
func (m Measurement) Failed() bool { return m.Err != nil }

// Cell is one (unit, binding) pair and its Measurement.
type Cell struct {
	Unit        *ExecutableUnit
	Binding     Binding
	Measurement Measurement
}

// ResultSet accumulates one Measurement per grid cell, in execution
// order: unit-major when multiple targets were supplied, binding order
// within each unit. Cells are never reordered or deduplicated; a binding
// that happens to equal another by value is still a distinct cell.
type ResultSet struct {
	cells []Cell
	index map[string]int
}

// add appends a cell, indexing its key for lookup. The first cell wins
// when keys collide (identical duplicated targets).
func (r *ResultSet) add(c Cell) {
	key := cellKey(c.Unit.Name(), c.Binding.Key())
	if _, exists := r.index[key]; !exists {
		r.index[key] = len(r.cells)
	}

	r.cells = append(r.cells, c)
}

// Len returns the number of cells.
func (r *ResultSet) Len() int { return len(r.cells) }

// Cells returns every cell in execution order. The returned slice is
// shared; callers must not modify it.
func (r *ResultSet) Cells() []Cell { return r.cells }

// Lookup returns the measurement for the given unit name and binding
// key (per [Binding.Key]).
func (r *ResultSet) Lookup(unit, binding string) (Measurement, bool) {
	i, ok := r.index[cellKey(unit, binding)]
	if !ok {
		return Measurement{}, false
	}

	return r.cells[i].Measurement, true
}

// Units returns the distinct unit names in first-seen order.
func (r *ResultSet) Units() []string {
	seen := make(map[string]bool, len(r.cells))

	var units []string

	for _, c := range r.cells {
		if name := c.Unit.Name(); !seen[name] {
			seen[name] = true

			units = append(units, name)
		}
	}

	return units
}

// cellKey joins a unit name and binding key with a separator that
// cannot occur in either.
func cellKey(unit, binding string) string {
	return unit + "\x00" + binding
}
