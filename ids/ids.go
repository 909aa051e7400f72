// Package ids defines the dense integer identifiers used throughout the
// planner and executor in place of pointer-linked graph nodes. Dense ids
// make pattern graphs and partial plans trivially cloneable: cloning a
// plan is a slice copy, not a pointer-graph walk.
package ids

import "fmt"

// VariableVertexId identifies a variable-vertex in a pattern graph.
type VariableVertexId uint32

func (id VariableVertexId) String() string {
	return fmt.Sprintf("$var%d", uint32(id))
}

// PatternVertexId identifies a pattern-vertex (constraint, comparison,
// expression, function call, disjunction, negation, ...) in a pattern graph.
type PatternVertexId uint32

func (id PatternVertexId) String() string {
	return fmt.Sprintf("$pat%d", uint32(id))
}

// VariableVertexAllocator hands out dense, monotonically increasing
// VariableVertexIds.
type VariableVertexAllocator struct {
	next uint32
}

// Next returns the next unused VariableVertexId.
func (a *VariableVertexAllocator) Next() VariableVertexId {
	id := VariableVertexId(a.next)
	a.next++
	return id
}

// Len reports how many ids have been allocated.
func (a *VariableVertexAllocator) Len() int {
	return int(a.next)
}

// PatternVertexAllocator hands out dense, monotonically increasing
// PatternVertexIds.
type PatternVertexAllocator struct {
	next uint32
}

// Next returns the next unused PatternVertexId.
func (a *PatternVertexAllocator) Next() PatternVertexId {
	id := PatternVertexId(a.next)
	a.next++
	return id
}

// Len reports how many ids have been allocated.
func (a *PatternVertexAllocator) Len() int {
	return int(a.next)
}

// VariableVertexSet is a small dense-id set backed by a map, used for
// produced-variable tracking in PartialPlan.
type VariableVertexSet map[VariableVertexId]struct{}

// NewVariableVertexSet builds a set from the given ids.
func NewVariableVertexSet(ids ...VariableVertexId) VariableVertexSet {
	s := make(VariableVertexSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member of the set.
func (s VariableVertexSet) Contains(id VariableVertexId) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s VariableVertexSet) Add(id VariableVertexId) {
	s[id] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s VariableVertexSet) Clone() VariableVertexSet {
	out := make(VariableVertexSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the set's members in ascending order, for deterministic
// hashing and display.
func (s VariableVertexSet) Sorted() []VariableVertexId {
	out := make([]VariableVertexId, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// PatternVertexSet is a small dense-id set of pattern-vertices.
type PatternVertexSet map[PatternVertexId]struct{}

// NewPatternVertexSet builds a set from the given ids.
func NewPatternVertexSet(ids ...PatternVertexId) PatternVertexSet {
	s := make(PatternVertexSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member of the set.
func (s PatternVertexSet) Contains(id PatternVertexId) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id into the set.
func (s PatternVertexSet) Add(id PatternVertexId) {
	s[id] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s PatternVertexSet) Clone() PatternVertexSet {
	out := make(PatternVertexSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the set's members in ascending order.
func (s PatternVertexSet) Sorted() []PatternVertexId {
	out := make([]PatternVertexId, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
