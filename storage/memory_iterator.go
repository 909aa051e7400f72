package storage

import (
	"fmt"
	"sort"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
)

// MemoryIterator is a SortedIterator over an in-memory slice of Rows,
// sorted once at construction on sortVar. It backs the end-to-end
// scenario tests and any fixture small enough to hold in memory.
type MemoryIterator struct {
	sortVar ids.VariableVertexId
	rows    []Row
	pos     int
}

// NewMemoryIterator builds a MemoryIterator over rows, sorted ascending
// on sortVar. rows is copied; the caller's slice is left untouched.
func NewMemoryIterator(sortVar ids.VariableVertexId, rows []Row) *MemoryIterator {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return value.Compare(sorted[i][sortVar], sorted[j][sortVar]) < 0
	})
	return &MemoryIterator{sortVar: sortVar, rows: sorted}
}

func (m *MemoryIterator) Peek() (value.Value, bool) {
	if m.pos >= len(m.rows) {
		return nil, false
	}
	return m.rows[m.pos][m.sortVar], true
}

func (m *MemoryIterator) PeekFirstUnboundValue() (value.Value, bool) {
	return m.Peek()
}

func (m *MemoryIterator) AdvanceSingle() error {
	if m.pos < len(m.rows) {
		m.pos++
	}
	return nil
}

func (m *MemoryIterator) AdvanceUntilFirstUnboundIs(target value.Value) (Ordering, error) {
	for m.pos < len(m.rows) {
		cmp := value.Compare(m.rows[m.pos][m.sortVar], target)
		if cmp >= 0 {
			return orderingOf(cmp), nil
		}
		m.pos++
	}
	return Greater, nil
}

func (m *MemoryIterator) AdvancePast() (uint64, error) {
	if m.pos >= len(m.rows) {
		return 0, nil
	}
	cur := m.rows[m.pos]
	var n uint64
	for m.pos < len(m.rows) && EqualRows(m.rows[m.pos], cur) {
		m.pos++
		n++
	}
	return n, nil
}

func (m *MemoryIterator) WriteValues(dst Row) error {
	if m.pos >= len(m.rows) {
		return fmt.Errorf("storage: WriteValues called on an exhausted MemoryIterator")
	}
	for k, v := range m.rows[m.pos] {
		dst[k] = v
	}
	return nil
}

func (m *MemoryIterator) Close() error { return nil }
