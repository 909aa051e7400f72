package executor

import (
	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/storage"
	"github.com/patternql/querycore/value"
)

// InstructionSource resolves one compiled.Instruction into a fresh
// SortedIterator given the values already bound on the input row. It is
// the seam between the join algorithm here and whatever concept/storage
// layer actually answers "what has-edges does this owner have", used
// both for a step's initial iterators and for cartesian reopen.
type InstructionSource interface {
	Iterator(instr compiled.Instruction, input storage.Row) (storage.SortedIterator, error)
}

// CheckEvaluator tests whether a check instruction holds for a row
// without producing a new iterator. Used by Check steps and intersection
// stashes.
type CheckEvaluator interface {
	Check(instr compiled.Instruction, row storage.Row) (bool, error)
}

// Expressioner evaluates an Assign step's expression over a row's bound
// variables, producing the value to write into the step's output.
type Expressioner interface {
	Evaluate(expr *compiled.ExpressionAssign, row storage.Row) (value.Value, error)
}

// FunctionInvoker evaluates a FunctionCall step's function over a row's
// bound arguments, producing bindings for the function's output variables.
type FunctionInvoker interface {
	Invoke(fn *compiled.FunctionCall, row storage.Row) (map[ids.VariableVertexId]value.Value, error)
}
