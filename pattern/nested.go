package pattern

import (
	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
)

// BranchPlan is the narrow view a nested pattern-vertex needs of a fully
// planned sub-query: its total cost and the variables it requires as
// input or makes available as output. planner.ConjunctionPlan implements
// this; it is declared here (rather than imported) because planner
// imports pattern and Go forbids the reverse cycle. Nested patterns are
// recursively planned before the outer plan begins, so by the time a
// Disjunction/Negation vertex exists, its branches are already complete
// plans, not pattern graphs.
type BranchPlan interface {
	TotalCost() cost.Cost
	RequiredInputs() []ids.VariableVertexId
	ProducedOutputs() []ids.VariableVertexId
}

// DisjunctionVertex holds one already-planned complete plan per branch.
// Planning a disjunction's branches happens before the outer beam search
// begins, keeping scoping strictly outer-to-inner.
type DisjunctionVertex struct {
	id       ids.PatternVertexId
	Branches []BranchPlan

	// SelectedOutputs is the set of variables the disjunction as a whole
	// binds, as named by the caller; it is stored as given and is not
	// checked against what the branches produce.
	SelectedOutputs []ids.VariableVertexId
}

// NewDisjunction constructs a Disjunction vertex over already-planned
// branches.
func NewDisjunction(id ids.PatternVertexId, branches []BranchPlan, selectedOutputs []ids.VariableVertexId) *DisjunctionVertex {
	return &DisjunctionVertex{id: id, Branches: branches, SelectedOutputs: selectedOutputs}
}

func (d *DisjunctionVertex) ID() ids.PatternVertexId { return d.id }
func (d *DisjunctionVertex) Kind() VertexKind        { return KindDisjunction }

func (d *DisjunctionVertex) Variables() []ids.VariableVertexId {
	seen := ids.NewVariableVertexSet()
	var out []ids.VariableVertexId
	for _, b := range d.Branches {
		for _, v := range b.RequiredInputs() {
			if !seen.Contains(v) {
				seen.Add(v)
				out = append(out, v)
			}
		}
	}
	for _, v := range d.SelectedOutputs {
		if !seen.Contains(v) {
			seen.Add(v)
			out = append(out, v)
		}
	}
	return out
}

func (d *DisjunctionVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool { return false }

func (d *DisjunctionVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (d *DisjunctionVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	if len(d.Branches) == 0 {
		return cost.NOOP, cost.MetaData{}, nil
	}
	total := d.Branches[0].TotalCost()
	for _, b := range d.Branches[1:] {
		total = cost.CombineParallel(total, b.TotalCost())
	}
	return total, cost.MetaData{}, nil
}

func (d *DisjunctionVertex) IsTrivial(bound ids.VariableVertexSet) bool { return false }

func (d *DisjunctionVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	var out []ids.VariableVertexId
	for _, v := range d.SelectedOutputs {
		if !bound.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func (d *DisjunctionVertex) RequiredVars() []ids.VariableVertexId {
	seen := ids.NewVariableVertexSet()
	var out []ids.VariableVertexId
	for _, b := range d.Branches {
		for _, v := range b.RequiredInputs() {
			if !seen.Contains(v) {
				seen.Add(v)
				out = append(out, v)
			}
		}
	}
	return out
}

// NegationVertex wraps a fully-planned sub-query that must produce zero
// rows for the outer row to survive. A negation never produces variables
// itself: it only requires that its referenced (already-bound) variables
// exist.
type NegationVertex struct {
	id    ids.PatternVertexId
	Inner BranchPlan
}

// NewNegation constructs a Negation vertex over an already-planned inner
// query.
func NewNegation(id ids.PatternVertexId, inner BranchPlan) *NegationVertex {
	return &NegationVertex{id: id, Inner: inner}
}

func (n *NegationVertex) ID() ids.PatternVertexId { return n.id }
func (n *NegationVertex) Kind() VertexKind        { return KindNegation }

func (n *NegationVertex) Variables() []ids.VariableVertexId {
	return n.Inner.RequiredInputs()
}

func (n *NegationVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool { return false }

func (n *NegationVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (n *NegationVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	return n.Inner.TotalCost(), cost.MetaData{}, nil
}

func (n *NegationVertex) IsTrivial(bound ids.VariableVertexSet) bool { return false }

func (n *NegationVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	return nil
}

func (n *NegationVertex) RequiredVars() []ids.VariableVertexId { return n.Inner.RequiredInputs() }

// LinksDeduplicationVertex is a zero-cost check-like vertex filtering
// duplicate role-player pairs produced when a Links traversal visits a
// relation with repeated role types (e.g. a symmetric relation). It
// produces no variables; it is an ordinary pattern-vertex so ordering
// and stashing treat it like any other fully-bound check.
type LinksDeduplicationVertex struct {
	id         ids.PatternVertexId
	Player1    ids.VariableVertexId
	Player2    ids.VariableVertexId
}

// NewLinksDeduplication constructs a dedup marker over two role players
// that must not compare equal under identity.
func NewLinksDeduplication(id ids.PatternVertexId, player1, player2 ids.VariableVertexId) *LinksDeduplicationVertex {
	return &LinksDeduplicationVertex{id: id, Player1: player1, Player2: player2}
}

func (l *LinksDeduplicationVertex) ID() ids.PatternVertexId { return l.id }
func (l *LinksDeduplicationVertex) Kind() VertexKind        { return KindLinksDeduplication }

func (l *LinksDeduplicationVertex) Variables() []ids.VariableVertexId {
	return []ids.VariableVertexId{l.Player1, l.Player2}
}

func (l *LinksDeduplicationVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool {
	return false
}

func (l *LinksDeduplicationVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (l *LinksDeduplicationVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	return cost.Trivial, cost.MetaData{}, nil
}

func (l *LinksDeduplicationVertex) IsTrivial(bound ids.VariableVertexSet) bool {
	return bound.Contains(l.Player1) && bound.Contains(l.Player2)
}

func (l *LinksDeduplicationVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	return nil
}

func (l *LinksDeduplicationVertex) RequiredVars() []ids.VariableVertexId { return l.Variables() }

// UnsatisfiableVertex marks a pattern subgraph statically determined to
// be a contradiction (e.g. a TypeList intersected down to the empty set,
// detected by BuildGraph's unsatisfiableTypeLists check). It carries no
// variables and costs nothing. Like Expression/FunctionCall it is not a
// Constraint, so beam search always gives it its own step (never stashes
// or joins it); lowering turns that step into a StepUnsatisfiable that
// unconditionally emits zero rows, short-circuiting the query.
type UnsatisfiableVertex struct {
	id ids.PatternVertexId
}

// NewUnsatisfiable constructs an Unsatisfiable marker vertex.
func NewUnsatisfiable(id ids.PatternVertexId) *UnsatisfiableVertex {
	return &UnsatisfiableVertex{id: id}
}

func (u *UnsatisfiableVertex) ID() ids.PatternVertexId              { return u.id }
func (u *UnsatisfiableVertex) Kind() VertexKind                     { return KindUnsatisfiable }
func (u *UnsatisfiableVertex) Variables() []ids.VariableVertexId    { return nil }
func (u *UnsatisfiableVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool {
	return false
}

func (u *UnsatisfiableVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (u *UnsatisfiableVertex) CostAndMetadata(ids.VariableVertexSet, *cost.Direction, *Graph, stats.Oracle) (cost.Cost, cost.MetaData, error) {
	return cost.NOOP, cost.MetaData{}, nil
}

// IsTrivial is false: a trivial extension is stashed onto whatever step is
// currently open, but Unsatisfiable must always get its own step so
// lowering can emit a dedicated StepUnsatisfiable rather than an
// instruction buildInstruction wouldn't know how to lower.
func (u *UnsatisfiableVertex) IsTrivial(ids.VariableVertexSet) bool { return false }

func (u *UnsatisfiableVertex) ProducedVars(ids.VariableVertexSet) []ids.VariableVertexId {
	return nil
}

func (u *UnsatisfiableVertex) RequiredVars() []ids.VariableVertexId { return nil }
