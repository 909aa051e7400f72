package pattern

import (
	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/value"
)

// ComparatorKind is the comparison operator a Comparison vertex applies.
type ComparatorKind int

const (
	Eq ComparatorKind = iota
	Lt
	Lte
	Gt
	Gte
	NotEqual
	Like
	Contains
)

// BoundsComparators reports whether a comparator imprints ordering bounds
// on its variables. Like, Contains and NotEqual do not constrain
// iteration ordering and are runtime-only checks.
func (k ComparatorKind) BoundsComparators() bool {
	switch k {
	case Like, Contains, NotEqual:
		return false
	default:
		return true
	}
}

// Operand is either a variable reference or a constant value.
type Operand struct {
	Var      ids.VariableVertexId
	IsVar    bool
	Constant value.Value
}

// VarOperand builds a variable operand.
func VarOperand(v ids.VariableVertexId) Operand { return Operand{Var: v, IsVar: true} }

// ConstOperand builds a constant operand.
func ConstOperand(v value.Value) Operand { return Operand{Constant: v} }

// IsVertex implements the `Is` constraint: a bidirectional equality link
// between two variables, imprinted on both variable-vertices.
type IsVertex struct {
	id       ids.PatternVertexId
	Lhs, Rhs ids.VariableVertexId
}

// NewIs constructs an `Is` vertex.
func NewIs(id ids.PatternVertexId, lhs, rhs ids.VariableVertexId) *IsVertex {
	return &IsVertex{id: id, Lhs: lhs, Rhs: rhs}
}

func (v *IsVertex) ID() ids.PatternVertexId { return v.id }
func (v *IsVertex) Kind() VertexKind        { return KindIs }
func (v *IsVertex) Variables() []ids.VariableVertexId {
	return []ids.VariableVertexId{v.Lhs, v.Rhs}
}

func (v *IsVertex) CanJoinOn(candidate ids.VariableVertexId, produced ids.VariableVertexSet) bool {
	return candidate == v.Lhs || candidate == v.Rhs
}

func (v *IsVertex) JoinFromDirectionAndInputs(d cost.Direction, stepProduced, allProduced ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	if allProduced.Contains(v.Lhs) {
		return v.Lhs, true
	}
	return v.Rhs, true
}

func (v *IsVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	if bound.Contains(v.Lhs) && bound.Contains(v.Rhs) {
		return cost.Trivial, cost.MetaData{}, nil
	}
	return cost.Cost{Cost: 1, IORatio: 1}, cost.MetaData{}, nil
}

func (v *IsVertex) IsTrivial(bound ids.VariableVertexSet) bool {
	return bound.Contains(v.Lhs) && bound.Contains(v.Rhs)
}

func (v *IsVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	var out []ids.VariableVertexId
	if !bound.Contains(v.Lhs) {
		out = append(out, v.Lhs)
	}
	if !bound.Contains(v.Rhs) {
		out = append(out, v.Rhs)
	}
	return out
}

func (v *IsVertex) RequiredVars() []ids.VariableVertexId { return nil }

// ComparisonVertex implements a comparison predicate between two operands,
// at least one of which is a variable. Comparisons never produce
// variables: they only become valid extensions once all their referenced
// variables are already bound elsewhere, at which point they are always
// trivial.
type ComparisonVertex struct {
	id       ids.PatternVertexId
	Op       ComparatorKind
	Lhs, Rhs Operand
}

// NewComparison constructs a Comparison vertex.
func NewComparison(id ids.PatternVertexId, op ComparatorKind, lhs, rhs Operand) *ComparisonVertex {
	return &ComparisonVertex{id: id, Op: op, Lhs: lhs, Rhs: rhs}
}

func (c *ComparisonVertex) ID() ids.PatternVertexId { return c.id }
func (c *ComparisonVertex) Kind() VertexKind        { return KindComparison }

func (c *ComparisonVertex) Variables() []ids.VariableVertexId {
	var out []ids.VariableVertexId
	if c.Lhs.IsVar {
		out = append(out, c.Lhs.Var)
	}
	if c.Rhs.IsVar {
		out = append(out, c.Rhs.Var)
	}
	return out
}

func (c *ComparisonVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool { return false }

func (c *ComparisonVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (c *ComparisonVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	return cost.Trivial, cost.MetaData{}, nil
}

func (c *ComparisonVertex) IsTrivial(bound ids.VariableVertexSet) bool { return true }

func (c *ComparisonVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	return nil
}

// RequiredVars is every variable a comparison references: it can only be
// evaluated once both sides are already bound.
func (c *ComparisonVertex) RequiredVars() []ids.VariableVertexId { return c.Variables() }
