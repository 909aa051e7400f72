// Package compiled defines the lowered, executable form of a plan: the
// MatchExecutable produced by planner.Lower, consisting of Steps each
// built from one or more Instructions. Unlike the pattern graph (which
// uses one Go type per vertex kind via an interface), Step and
// Instruction are tagged structs (a Kind enum plus variant-specific
// fields) matched exhaustively rather than dispatched virtually.
package compiled

import (
	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/pattern"
)

// InstructionKind identifies which constraint (or Is-link) an
// Instruction evaluates.
type InstructionKind int

const (
	InstructionIsa InstructionKind = iota
	InstructionHas
	InstructionLinks
	InstructionIndexedRelation
	InstructionSub
	InstructionOwns
	InstructionPlays
	InstructionRelates
	InstructionIs
	InstructionTypeList
	InstructionIid
	InstructionLinksDeduplication
	InstructionComparison
)

func (k InstructionKind) String() string {
	names := [...]string{
		"Isa", "Has", "Links", "IndexedRelation", "Sub", "Owns", "Plays",
		"Relates", "Is", "TypeList", "Iid", "LinksDeduplication", "Comparison",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// InputsKind tags how many of an instruction's variables are already
// bound when it executes.
type InputsKind int

const (
	InputsNone InputsKind = iota
	InputsSingle
	InputsDual
)

// Inputs records which side(s) of a binary instruction are already bound
// on entry: None, Single(x) or Dual(x,y).
type Inputs struct {
	Kind InputsKind
	X, Y ids.VariableVertexId
}

// NoInputs is the None variant.
func NoInputs() Inputs { return Inputs{Kind: InputsNone} }

// SingleInput is the Single(x) variant.
func SingleInput(x ids.VariableVertexId) Inputs { return Inputs{Kind: InputsSingle, X: x} }

// DualInput is the Dual(x,y) variant.
func DualInput(x, y ids.VariableVertexId) Inputs { return Inputs{Kind: InputsDual, X: x, Y: y} }

// Instruction is one constraint-evaluation unit inside an Intersection
// step (or, standing alone, a Check step). Direction records Canonical
// vs Reverse for binary constraints; SortVariable is the variable this
// instruction's iterator is sorted on.
type Instruction struct {
	Kind      InstructionKind
	Direction cost.Direction
	Inputs    Inputs

	Lhs ids.VariableVertexId
	Rhs ids.VariableVertexId

	// RoleType tags a Links instruction with its (non-variable) role.
	RoleType string

	// Player2/Role1/Role2 extend a binary instruction into the
	// IndexedRelation 5-tuple: (relation=Lhs, player1=Rhs, role1=Role1,
	// player2=Player2, role2=Role2). Canonical vs Reverse swaps
	// (player1, player2) and their role sets.
	Player2 ids.VariableVertexId
	Role1   string
	Role2   string

	// Types restricts a TypeList instruction.
	Types []string
	// IidValue pins an Iid instruction.
	IidValue interface{}

	// CompareOp/LhsOperand/RhsOperand populate a Comparison instruction;
	// operands may be variables or constants (pattern.Operand covers
	// both), so Comparison reuses that representation rather than
	// duplicating it.
	CompareOp   pattern.ComparatorKind
	LhsOperand  pattern.Operand
	RhsOperand  pattern.Operand

	SortVariable ids.VariableVertexId
}

// StepKind tags which of the seven plan-step shapes a Step is.
type StepKind int

const (
	StepIntersection StepKind = iota
	StepExpressionAssign
	StepFunctionCall
	StepCheck
	StepNestedDisjunction
	StepNestedNegation
	// StepUnsatisfiable unconditionally discards its input, producing zero
	// output rows regardless of what it's given. Lowered from a pattern-
	// vertex that BuildGraph statically proved contradictory.
	StepUnsatisfiable
)

func (k StepKind) String() string {
	names := [...]string{
		"Intersection", "ExpressionAssign", "FunctionCall", "Check",
		"NestedDisjunction", "NestedNegation", "Unsatisfiable",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// ExpressionAssign evaluates Text/Eval over Inputs and writes the result
// into Output.
type ExpressionAssign struct {
	Inputs []ids.VariableVertexId
	Output ids.VariableVertexId
	Text   string
	Eval   pattern.Evaluator
}

// FunctionCall invokes FnID over Args, binding Outputs.
type FunctionCall struct {
	FnID    string
	Args    []ids.VariableVertexId
	Outputs []ids.VariableVertexId
}

// DisjunctionBranch is one already-lowered branch of a disjunction step.
type DisjunctionBranch struct {
	Executable *MatchExecutable
}

// NestedDisjunction concatenates the output rows of each branch executed
// independently over the same input row.
type NestedDisjunction struct {
	Branches        []DisjunctionBranch
	SelectedOutputs []ids.VariableVertexId
}

// NestedNegation succeeds (passes the input row through) iff its inner
// executable produces zero rows for that input.
type NestedNegation struct {
	Inner *MatchExecutable
}

// Step is one unit of the lowered plan. Exactly the fields relevant to
// Kind are populated; a tagged struct rather than a Step interface keeps
// the executor's dispatch a single exhaustive switch.
type Step struct {
	Kind StepKind

	// Intersection / Check
	SortVariable ids.VariableVertexId
	Instructions []Instruction
	Checks       []Instruction

	Expression *ExpressionAssign
	Function   *FunctionCall
	Disjunction *NestedDisjunction
	Negation    *NestedNegation

	// SelectedOutputs is the row schema carried into the next step: every
	// variable bound by this step or by any step before it.
	SelectedOutputs []ids.VariableVertexId
}

// MatchExecutable is the fully lowered plan: an ordered list of Steps plus
// the final output variable ordering.
type MatchExecutable struct {
	Steps        []Step
	OutputVars   []ids.VariableVertexId
	TotalCost    cost.Cost
}
