// Package storage implements the SortedIterator capability the executor
// consumes: a monotonic, peekable cursor over rows sorted on one "sort
// variable" column, plus two concrete backends — an in-memory one for
// tests and small fixtures, and a BadgerDB-backed one for durable data
// using an order-preserving key encoding so byte order equals value
// order.
//
// Row here is a map keyed by variable-vertex id rather than a fixed-width
// vector: the executor never needs positional slot indices, only "does
// this row have a value for variable X", so a map keeps WriteValues
// simple without a separate slot-assignment registry.
package storage

import (
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
)

// Row is one in-flight result row, keyed by the variable-vertex id each
// value is bound to.
type Row map[ids.VariableVertexId]value.Value

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// EqualRows reports whether two rows bind the same variables to equal
// values.
func EqualRows(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !value.Equal(av, bv) {
			return false
		}
	}
	return true
}

// Ordering reports how a landed value compares to the value an
// AdvanceUntilFirstUnboundIs call searched for.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func orderingOf(cmp int) Ordering {
	switch {
	case cmp < 0:
		return Less
	case cmp > 0:
		return Greater
	default:
		return Equal
	}
}

// SortedIterator is the capability an IntersectionExecutor drives. All
// Advance* operations are monotonic: none ever moves the cursor
// backwards. Peek and PeekFirstUnboundValue both report the iterator's
// current sort-variable value from the same cursor state in this
// single-sort-column implementation; the IntersectionExecutor uses Peek
// for both lockstep comparison and exhaustion tests.
type SortedIterator interface {
	// Peek reports the current sort-variable value, or ok=false if the
	// iterator is exhausted.
	Peek() (v value.Value, ok bool)

	// PeekFirstUnboundValue reports the same value as Peek; see the type
	// doc.
	PeekFirstUnboundValue() (v value.Value, ok bool)

	// AdvanceSingle moves past exactly one row.
	AdvanceSingle() error

	// AdvanceUntilFirstUnboundIs seeks forward until the sort-variable
	// value is >= target, returning how the landed value compares to
	// target. If the iterator is exhausted before reaching target, the
	// returned Ordering is Greater and a subsequent Peek reports
	// ok=false — callers must check Peek, not just the Ordering, to
	// distinguish "landed past target" from "ran out looking for it".
	AdvanceUntilFirstUnboundIs(target value.Value) (Ordering, error)

	// AdvancePast consumes the current logical tuple — the current row
	// plus every immediately following row identical to it — and returns
	// how many physical rows were consumed (the tuple's duplicate
	// multiplicity). Rows that share the sort-variable value but differ
	// elsewhere are distinct tuples and are left in place.
	AdvancePast() (uint64, error)

	// WriteValues merges this iterator's currently-peeked row into dst.
	WriteValues(dst Row) error

	// Close releases any underlying resources (a no-op for MemoryIterator,
	// a transaction/iterator teardown for BadgerIterator).
	Close() error
}
