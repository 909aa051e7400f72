package pattern

import (
	"fmt"
	"sort"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/value"
)

// VariableCategory is the scoping category a variable was declared
// under. Category drives producer requirements, Kind drives what domain
// the variable ranges over.
type VariableCategory int

const (
	CategoryInput VariableCategory = iota
	CategoryShared
	CategoryLocal
)

// VariableSpec is the external description of one variable a conjunction
// references. Resolving a frontend query's variables into this shape is
// the IR layer's job; BuildGraph only consumes it.
type VariableSpec struct {
	Name     string
	Category VariableCategory
	Kind     VariableKind

	// CandidateTypes names the schema types statistics.Oracle should be
	// consulted about to size this variable (out of scope: computing
	// these is type inference's job).
	CandidateTypes []string

	// IsList rejects a variable ranging over a list category (non-goal:
	// list-valued attributes are unimplemented).
	IsList bool
	// IsAmbiguousAttributeOrValue rejects a variable whose attribute-or-
	// value category was not resolved upstream.
	IsAmbiguousAttributeOrValue bool
	// IsOptional rejects an optional-pattern variable (non-goal).
	IsOptional bool
}

// OperandSpec is a pre-resolution Operand: a variable name or a constant.
type OperandSpec struct {
	VarName  string
	IsVar    bool
	Constant value.Value
}

// VarSpecOperand builds a variable OperandSpec.
func VarSpecOperand(name string) OperandSpec { return OperandSpec{VarName: name, IsVar: true} }

// ConstSpecOperand builds a constant OperandSpec.
func ConstSpecOperand(v value.Value) OperandSpec { return OperandSpec{Constant: v} }

// Conjunction is the external input to pattern graph construction: a flat
// list of constraints plus nested disjunction/negation sub-patterns, over
// a declared variable scope.
type Conjunction struct {
	Variables []VariableSpec

	Has             []HasSpec
	Isa             []IsaSpec
	Sub             []SubSpec
	Owns            []OwnsSpec
	Plays           []PlaysSpec
	Relates         []RelatesSpec
	Links           []LinksSpec
	IndexedRelation []IndexedRelationSpec
	TypeList        []TypeListSpec
	Iid             []IidSpec
	Is              []IsSpec
	Comparisons     []ComparisonSpec
	Expressions     []ExpressionSpec
	FunctionCalls   []FunctionCallSpec
	LinksDedup      []LinksDedupSpec

	Disjunctions []DisjunctionSpec
	Negations    []NegationSpec
}

type HasSpec struct{ Owner, Attribute string }
type IsaSpec struct{ Thing, Type string }
type SubSpec struct{ Sub, Super string }
type OwnsSpec struct{ Owner, AttributeType string }
type PlaysSpec struct{ Player, RoleType string }
type RelatesSpec struct{ RelationType, RoleType string }
type LinksSpec struct {
	Relation, Player string
	RoleType         string
}
type IndexedRelationSpec struct {
	Relation, Player1, Player2 string
	Role1, Role2               string
}
type TypeListSpec struct {
	Var   string
	Types []string
}
type IidSpec struct {
	Var string
	Iid value.Value
}
type IsSpec struct{ Lhs, Rhs string }
type ComparisonSpec struct {
	Op       ComparatorKind
	Lhs, Rhs OperandSpec
}
type ExpressionSpec struct {
	Inputs []string
	Output string
	Text   string
	Eval   Evaluator
}
type FunctionCallSpec struct {
	FnID    string
	Args    []string
	Outputs []string
}
type LinksDedupSpec struct{ Player1, Player2 string }

// DisjunctionSpec names a disjunction's branches as nested conjunctions.
type DisjunctionSpec struct {
	Branches        []Conjunction
	SelectedOutputs []string
}

// NegationSpec names a negation's inner conjunction.
type NegationSpec struct {
	Inner Conjunction
}

// PlanNestedFunc recursively plans a nested conjunction into a
// BranchPlan, given the set of variable names it may take as already-
// bound input. The planner package supplies this when it drives
// BuildGraph for an outer conjunction; pattern itself has no search
// logic.
type PlanNestedFunc func(conjunction Conjunction, boundInputs []string) (BranchPlan, error)

// BuildGraph constructs the bipartite pattern graph for conjunction,
// given externally supplied statistics and a function-call cost oracle.
// Nested disjunction/negation patterns are fully planned via planNested
// before being installed as Disjunction/Negation pattern-vertices.
func BuildGraph(conjunction Conjunction, statistics stats.Oracle, fnOracle FunctionCostOracle, planNested PlanNestedFunc) (*Graph, error) {
	g := newGraph()

	for _, vs := range conjunction.Variables {
		if vs.IsList {
			return nil, &UnsupportedFeatureError{Feature: "Lists"}
		}
		if vs.IsOptional {
			return nil, &UnsupportedFeatureError{Feature: "Optionals"}
		}
		if vs.IsAmbiguousAttributeOrValue {
			return nil, fmt.Errorf("pattern: variable %q has unresolved attribute-or-value category", vs.Name)
		}
		id := g.varAlloc.Next()
		size := estimateUnrestrictedSize(vs, statistics)
		g.addVariable(&VariableVertex{
			ID:                        id,
			Name:                      vs.Name,
			Kind:                      vs.Kind,
			EstimatedUnrestrictedSize: size,
			EstimatedRestrictedSize:   size,
		})
	}

	resolve := func(name string) (ids.VariableVertexId, error) {
		id, ok := g.VariableByName[name]
		if !ok {
			return 0, fmt.Errorf("pattern: undeclared variable %q", name)
		}
		return id, nil
	}
	resolveOperand := func(o OperandSpec) (Operand, error) {
		if !o.IsVar {
			return ConstOperand(o.Constant), nil
		}
		id, err := resolve(o.VarName)
		if err != nil {
			return Operand{}, err
		}
		return VarOperand(id), nil
	}

	for _, s := range conjunction.Has {
		owner, err := resolve(s.Owner)
		if err != nil {
			return nil, err
		}
		attr, err := resolve(s.Attribute)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewHas(g.patternAlloc.Next(), owner, attr))
	}
	for _, s := range conjunction.Isa {
		thing, err := resolve(s.Thing)
		if err != nil {
			return nil, err
		}
		typ, err := resolve(s.Type)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewIsa(g.patternAlloc.Next(), thing, typ))
	}
	for _, s := range conjunction.Sub {
		sub, err := resolve(s.Sub)
		if err != nil {
			return nil, err
		}
		super, err := resolve(s.Super)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewSub(g.patternAlloc.Next(), sub, super))
	}
	for _, s := range conjunction.Owns {
		owner, err := resolve(s.Owner)
		if err != nil {
			return nil, err
		}
		at, err := resolve(s.AttributeType)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewOwns(g.patternAlloc.Next(), owner, at))
	}
	for _, s := range conjunction.Plays {
		player, err := resolve(s.Player)
		if err != nil {
			return nil, err
		}
		rt, err := resolve(s.RoleType)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewPlays(g.patternAlloc.Next(), player, rt))
	}
	for _, s := range conjunction.Relates {
		rel, err := resolve(s.RelationType)
		if err != nil {
			return nil, err
		}
		rt, err := resolve(s.RoleType)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewRelates(g.patternAlloc.Next(), rel, rt))
	}
	for _, s := range conjunction.Links {
		relation, err := resolve(s.Relation)
		if err != nil {
			return nil, err
		}
		player, err := resolve(s.Player)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewLinks(g.patternAlloc.Next(), relation, player, s.RoleType))
	}
	for _, s := range conjunction.IndexedRelation {
		relation, err := resolve(s.Relation)
		if err != nil {
			return nil, err
		}
		p1, err := resolve(s.Player1)
		if err != nil {
			return nil, err
		}
		p2, err := resolve(s.Player2)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewIndexedRelation(g.patternAlloc.Next(), relation, p1, p2, s.Role1, s.Role2))
	}
	typeListsByVar := make(map[ids.VariableVertexId][][]string)
	for _, s := range conjunction.TypeList {
		v, err := resolve(s.Var)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewTypeList(g.patternAlloc.Next(), v, s.Types))
		typeListsByVar[v] = append(typeListsByVar[v], s.Types)
	}
	// A variable restricted to the empty type set, or restricted by two or
	// more TypeList constraints whose candidate types don't overlap at all,
	// is a static contradiction: no type can satisfy every TypeList at
	// once. Detected here so execution can short-circuit to zero output
	// rows instead of the planner ordering constraints it can never bind.
	var contradictoryVars []int
	for v, lists := range typeListsByVar {
		if unsatisfiableTypeLists(lists) {
			contradictoryVars = append(contradictoryVars, int(v))
		}
	}
	sort.Ints(contradictoryVars)
	for range contradictoryVars {
		g.addVertex(NewUnsatisfiable(g.patternAlloc.Next()))
	}
	for _, s := range conjunction.Iid {
		v, err := resolve(s.Var)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewIid(g.patternAlloc.Next(), v, s.Iid))
	}
	for _, s := range conjunction.Is {
		lhs, err := resolve(s.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := resolve(s.Rhs)
		if err != nil {
			return nil, err
		}
		vertex := NewIs(g.patternAlloc.Next(), lhs, rhs)
		g.addVertex(vertex)
		g.Variables[lhs].IsLinks = append(g.Variables[lhs].IsLinks, rhs)
		g.Variables[rhs].IsLinks = append(g.Variables[rhs].IsLinks, lhs)
	}
	for _, s := range conjunction.Comparisons {
		lhs, err := resolveOperand(s.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := resolveOperand(s.Rhs)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewComparison(g.patternAlloc.Next(), s.Op, lhs, rhs))
		if s.Op.BoundsComparators() {
			imprintBounds(g, s.Op, lhs, rhs)
		}
	}
	for _, s := range conjunction.Expressions {
		inputs := make([]ids.VariableVertexId, len(s.Inputs))
		for i, name := range s.Inputs {
			v, err := resolve(name)
			if err != nil {
				return nil, err
			}
			inputs[i] = v
		}
		output, err := resolve(s.Output)
		if err != nil {
			return nil, err
		}
		vertex := NewExpression(g.patternAlloc.Next(), inputs, output, s.Text, s.Eval)
		g.addVertex(vertex)
		if err := g.SetProducer(output, vertex.ID()); err != nil {
			return nil, err
		}
	}
	for _, s := range conjunction.FunctionCalls {
		args := make([]ids.VariableVertexId, len(s.Args))
		for i, name := range s.Args {
			v, err := resolve(name)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		outputs := make([]ids.VariableVertexId, len(s.Outputs))
		for i, name := range s.Outputs {
			v, err := resolve(name)
			if err != nil {
				return nil, err
			}
			outputs[i] = v
		}
		vertex := NewFunctionCall(g.patternAlloc.Next(), s.FnID, args, outputs, fnOracle)
		g.addVertex(vertex)
		for _, o := range outputs {
			if err := g.SetProducer(o, vertex.ID()); err != nil {
				return nil, err
			}
		}
	}
	for _, s := range conjunction.LinksDedup {
		p1, err := resolve(s.Player1)
		if err != nil {
			return nil, err
		}
		p2, err := resolve(s.Player2)
		if err != nil {
			return nil, err
		}
		g.addVertex(NewLinksDeduplication(g.patternAlloc.Next(), p1, p2))
	}

	for _, s := range conjunction.Negations {
		if planNested == nil {
			return nil, fmt.Errorf("pattern: negation present but no nested planner supplied")
		}
		inner, err := planNested(s.Inner, nestedInputNames(s.Inner))
		if err != nil {
			return nil, fmt.Errorf("pattern: planning negation: %w", err)
		}
		g.addVertex(NewNegation(g.patternAlloc.Next(), inner))
	}

	for _, s := range conjunction.Disjunctions {
		if planNested == nil {
			return nil, fmt.Errorf("pattern: disjunction present but no nested planner supplied")
		}
		branches := make([]BranchPlan, len(s.Branches))
		for i, branch := range s.Branches {
			plan, err := planNested(branch, nestedInputNames(branch))
			if err != nil {
				return nil, fmt.Errorf("pattern: planning disjunction branch %d: %w", i, err)
			}
			branches[i] = plan
		}
		outputs := make([]ids.VariableVertexId, len(s.SelectedOutputs))
		for i, name := range s.SelectedOutputs {
			v, err := resolve(name)
			if err != nil {
				return nil, err
			}
			outputs[i] = v
		}
		g.addVertex(NewDisjunction(g.patternAlloc.Next(), branches, outputs))
	}

	return g, nil
}

// nestedInputNames returns the names of a nested conjunction's Input
// category variables, which are the ones the outer plan must already
// have bound before the nested sub-plan can run.
func nestedInputNames(c Conjunction) []string {
	var out []string
	for _, v := range c.Variables {
		if v.Category == CategoryInput {
			out = append(out, v.Name)
		}
	}
	return out
}

func estimateUnrestrictedSize(vs VariableSpec, statistics stats.Oracle) int64 {
	if statistics == nil || len(vs.CandidateTypes) == 0 {
		return 1
	}
	var total int64
	switch vs.Kind {
	case Type:
		return int64(len(vs.CandidateTypes))
	case Value:
		for _, t := range vs.CandidateTypes {
			total += statistics.AttributeValueCount(stats.TypeName(t))
		}
	default:
		for _, t := range vs.CandidateTypes {
			total += statistics.TypeCount(stats.TypeName(t))
		}
	}
	if total <= 0 {
		return 1
	}
	return total
}

func imprintBounds(g *Graph, op ComparatorKind, lhs, rhs Operand) {
	imprint := func(varID ids.VariableVertexId, other Operand, reversed bool) {
		if !other.IsVar {
			v := g.Variables[varID]
			effectiveOp := op
			if reversed {
				effectiveOp = flip(op)
			}
			switch effectiveOp {
			case Eq:
				v.Bounds.Equal = other.Constant
				v.Bounds.HasEqual = true
			case Lt:
				v.Bounds.UpperBound = other.Constant
				v.Bounds.UpperInclusive = false
				v.Bounds.HasUpper = true
			case Lte:
				v.Bounds.UpperBound = other.Constant
				v.Bounds.UpperInclusive = true
				v.Bounds.HasUpper = true
			case Gt:
				v.Bounds.LowerBound = other.Constant
				v.Bounds.LowerInclusive = false
				v.Bounds.HasLower = true
			case Gte:
				v.Bounds.LowerBound = other.Constant
				v.Bounds.LowerInclusive = true
				v.Bounds.HasLower = true
			}
		}
	}
	if lhs.IsVar {
		imprint(lhs.Var, rhs, false)
	}
	if rhs.IsVar {
		imprint(rhs.Var, lhs, true)
	}
}

func flip(op ComparatorKind) ComparatorKind {
	switch op {
	case Lt:
		return Gt
	case Lte:
		return Gte
	case Gt:
		return Lt
	case Gte:
		return Lte
	default:
		return op
	}
}

// unsatisfiableTypeLists reports whether a variable's TypeList constraints
// are jointly contradictory: any one of them naming zero candidate types, or
// two or more of them whose candidate type sets share no type at all.
func unsatisfiableTypeLists(lists [][]string) bool {
	for _, l := range lists {
		if len(l) == 0 {
			return true
		}
	}
	if len(lists) < 2 {
		return false
	}
	common := make(map[string]bool, len(lists[0]))
	for _, t := range lists[0] {
		common[t] = true
	}
	for _, l := range lists[1:] {
		next := make(map[string]bool, len(l))
		for _, t := range l {
			if common[t] {
				next[t] = true
			}
		}
		common = next
		if len(common) == 0 {
			return true
		}
	}
	return false
}
