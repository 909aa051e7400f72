// Package pattern builds the bipartite pattern graph the planner searches
// over: variable-vertices (what a query talks about) on one side,
// pattern-vertices (the constraints, comparisons, expressions, function
// calls, and nested patterns that relate them) on the other.
package pattern

import (
	"fmt"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
)

// VariableKind classifies what a variable-vertex ranges over.
type VariableKind int

const (
	// Input variables are bound externally before planning begins.
	Input VariableKind = iota
	// Type variables range over schema types.
	Type
	// Thing variables range over entity/relation instances.
	Thing
	// Value variables range over attribute values.
	Value
)

func (k VariableKind) String() string {
	switch k {
	case Input:
		return "input"
	case Type:
		return "type"
	case Thing:
		return "thing"
	case Value:
		return "value"
	default:
		return "unknown"
	}
}

// Bounds records the tightest known comparison bounds gathered for a
// variable from equalities and inequalities against it. Like, Contains
// and NotEqual imprint nothing here: they do not constrain iteration
// ordering and are enforced only as runtime checks.
type Bounds struct {
	Equal          interface{}
	HasEqual       bool
	UpperBound     interface{}
	UpperInclusive bool
	HasUpper       bool
	LowerBound     interface{}
	LowerInclusive bool
	HasLower       bool
}

// VariableVertex is one node of the variable side of the pattern graph.
type VariableVertex struct {
	ID   ids.VariableVertexId
	Name string
	Kind VariableKind

	// EstimatedUnrestrictedSize is the statistics-derived output size
	// before any bounds from this query are applied.
	EstimatedUnrestrictedSize int64
	// EstimatedRestrictedSize is set equal to EstimatedUnrestrictedSize
	// when the graph is built; bounds imprinted by comparisons/Is links
	// do not change it.
	EstimatedRestrictedSize int64

	Bounds Bounds

	// Producer is the Expression or FunctionCall pattern-vertex that binds
	// this variable, recorded through SetProducer, which allows at most
	// one. Nil for Input variables and for variables bound only by
	// constraints.
	Producer *ids.PatternVertexId

	// IsLinks holds the ids of variable-vertices this one has been
	// equated with via an `Is` constraint (bidirectional).
	IsLinks []ids.VariableVertexId
}

// Graph is the bipartite pattern graph built from a Conjunction.
type Graph struct {
	Variables map[ids.VariableVertexId]*VariableVertex
	Vertices  map[ids.PatternVertexId]Vertex

	// VariableByName indexes variable-vertices by their source name for
	// construction-time lookups; not used by the planner once built.
	VariableByName map[string]ids.VariableVertexId

	// edges: variable -> referencing pattern-vertices, and back.
	varToPatterns map[ids.VariableVertexId]ids.PatternVertexSet
	patternToVars map[ids.PatternVertexId]ids.VariableVertexSet

	varAlloc     ids.VariableVertexAllocator
	patternAlloc ids.PatternVertexAllocator
}

func newGraph() *Graph {
	return &Graph{
		Variables:      make(map[ids.VariableVertexId]*VariableVertex),
		Vertices:       make(map[ids.PatternVertexId]Vertex),
		VariableByName: make(map[string]ids.VariableVertexId),
		varToPatterns:  make(map[ids.VariableVertexId]ids.PatternVertexSet),
		patternToVars:  make(map[ids.PatternVertexId]ids.VariableVertexSet),
	}
}

// VertexKind tags which sub-kind of pattern-vertex a Vertex is.
type VertexKind int

const (
	KindTypeList VertexKind = iota
	KindIid
	KindIsa
	KindHas
	KindLinks
	KindIndexedRelation
	KindSub
	KindOwns
	KindPlays
	KindRelates
	KindIs
	KindComparison
	KindExpression
	KindFunctionCall
	KindDisjunction
	KindNegation
	KindLinksDeduplication
	KindUnsatisfiable
)

func (k VertexKind) String() string {
	names := [...]string{
		"TypeList", "Iid", "Isa", "Has", "Links", "IndexedRelation", "Sub",
		"Owns", "Plays", "Relates", "Is", "Comparison", "Expression",
		"FunctionCall", "Disjunction", "Negation", "LinksDeduplication",
		"Unsatisfiable",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// IsConstraint reports whether k is one of the Constraint sub-kinds,
// including Is: an Is link behaves exactly like a binary constraint for
// join purposes even though it also imprints bidirectional
// variable-equivalence bounds.
func (k VertexKind) IsConstraint() bool {
	return k <= KindIs
}

// Vertex is a pattern-vertex: something the beam search can order into a
// plan. Every concrete vertex type in this package implements it.
type Vertex interface {
	ID() ids.PatternVertexId
	Kind() VertexKind
	// Variables returns every variable-vertex this pattern-vertex
	// references (both inputs and outputs).
	Variables() []ids.VariableVertexId

	// CanJoinOn reports whether this vertex could act as an intersection
	// member joining on candidate variable v, given the variables already
	// produced elsewhere in the plan.
	CanJoinOn(v ids.VariableVertexId, produced ids.VariableVertexSet) bool

	// JoinFromDirectionAndInputs determines the join variable implied by
	// a chosen traversal direction, used to seed a step's join variable
	// when this vertex is the step's first member.
	JoinFromDirectionAndInputs(d cost.Direction, stepProduced, allProduced ids.VariableVertexSet) (ids.VariableVertexId, bool)

	// CostAndMetadata estimates the cost of evaluating this vertex given
	// which variables are already bound. forced, if non-nil, pins the
	// traversal direction for binary constraints instead of picking the
	// cheaper one.
	CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error)

	// IsTrivial reports whether, given bound variables, this vertex is a
	// fully-bound check with zero traversal cost (a stash candidate).
	IsTrivial(bound ids.VariableVertexSet) bool

	// ProducedVars returns the variables this vertex newly binds given
	// already-bound variables.
	ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId

	// RequiredVars returns the variables that must already be bound
	// before this vertex can be considered a valid extension at all,
	// regardless of which of its variables end up produced — a function
	// call requires all argument vars, for example. Constraint vertices
	// have none: any binding combination is valid, with unbound sides
	// produced.
	RequiredVars() []ids.VariableVertexId
}

func (g *Graph) addVariable(v *VariableVertex) {
	g.Variables[v.ID] = v
	g.VariableByName[v.Name] = v.ID
	g.varToPatterns[v.ID] = ids.NewPatternVertexSet()
}

func (g *Graph) addVertex(v Vertex) {
	g.Vertices[v.ID()] = v
	vars := ids.NewVariableVertexSet(v.Variables()...)
	g.patternToVars[v.ID()] = vars
	for varID := range vars {
		if g.varToPatterns[varID] == nil {
			g.varToPatterns[varID] = ids.NewPatternVertexSet()
		}
		g.varToPatterns[varID].Add(v.ID())
	}
}

// ReferencingPatterns returns the pattern-vertices that reference v.
func (g *Graph) ReferencingPatterns(v ids.VariableVertexId) ids.PatternVertexSet {
	return g.varToPatterns[v]
}

// PatternVariables returns the variable-vertices referenced by p.
func (g *Graph) PatternVariables(p ids.PatternVertexId) ids.VariableVertexSet {
	return g.patternToVars[p]
}

// SetProducer records that p is the producer of varID, enforcing the
// exactly-one-producer invariant.
func (g *Graph) SetProducer(varID ids.VariableVertexId, p ids.PatternVertexId) error {
	v := g.Variables[varID]
	if v == nil {
		return fmt.Errorf("pattern: unknown variable-vertex %v", varID)
	}
	if v.Kind == Input {
		return fmt.Errorf("pattern: input variable %q cannot have a producer", v.Name)
	}
	if v.Producer != nil && *v.Producer != p {
		return fmt.Errorf("pattern: variable %q already has producer %v, cannot also assign %v", v.Name, *v.Producer, p)
	}
	pid := p
	v.Producer = &pid
	return nil
}
