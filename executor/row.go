// Package executor runs a compiled.MatchExecutable over an
// InstructionSource: the n-way sorted-intersection merge-join, its
// cartesian sub-executor, and the Check/Assign/Disjunction/Negation step
// executors. The pieces are small structs each owning their iterators
// and exposing a Next-shaped surface, composed by Execute.
package executor

import "github.com/patternql/querycore/storage"

// Row is one in-flight result row together with the bookkeeping carried
// alongside the bound values themselves: a multiplicity (duplicate rows
// collapse into one Row carrying a count rather than being materialized
// individually) and a provenance tag (which disjunction branch, if any,
// produced it — opaque to everything but the caller that set it).
type Row struct {
	Values       storage.Row
	Multiplicity uint64
	Provenance   int
}

// NewRow wraps values with multiplicity 1 and no provenance, the common
// case for a query's initial input row.
func NewRow(values storage.Row) Row {
	return Row{Values: values, Multiplicity: 1}
}

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	return Row{Values: r.Values.Clone(), Multiplicity: r.Multiplicity, Provenance: r.Provenance}
}

// Batch is a fixed-width group of output rows, the unit steps emit and
// the boundary cancellation is checked on.
type Batch []Row
