package executor

import (
	"testing"

	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/storage"
	"github.com/patternql/querycore/value"
	"github.com/stretchr/testify/require"
)

// thresholdChecker passes a row iff its bound variable's value exceeds a
// fixed threshold, standing in for a concrete constraint check.
type thresholdChecker struct {
	variable  ids.VariableVertexId
	threshold int64
}

func (c thresholdChecker) Check(_ compiled.Instruction, row storage.Row) (bool, error) {
	v, ok := row[c.variable].(int64)
	return ok && v > c.threshold, nil
}

func TestRunCheckStepFiltersAndProjects(t *testing.T) {
	a := ids.VariableVertexId(0)
	b := ids.VariableVertexId(1)

	step := compiled.Step{
		Kind:            compiled.StepCheck,
		Checks:          []compiled.Instruction{{Kind: compiled.InstructionComparison}},
		SelectedOutputs: []ids.VariableVertexId{a},
	}
	env := Env{Checker: thresholdChecker{variable: a, threshold: 10}}

	input := []Row{
		NewRow(storage.Row{a: int64(5), b: int64(1)}),
		NewRow(storage.Row{a: int64(20), b: int64(2)}),
	}
	out, err := runCheckStep(step, env, input)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(20), out[0].Values[a])
	require.NotContains(t, out[0].Values, b)
}

// addingEvaluator implements Expressioner by adding a constant to one
// input variable.
type addingEvaluator struct{ delta int64 }

func (e addingEvaluator) Evaluate(expr *compiled.ExpressionAssign, row storage.Row) (value.Value, error) {
	return row[expr.Inputs[0]].(int64) + e.delta, nil
}

func TestRunAssignStepWritesOutput(t *testing.T) {
	a1 := ids.VariableVertexId(0)
	a2 := ids.VariableVertexId(1)

	step := compiled.Step{
		Kind: compiled.StepExpressionAssign,
		Expression: &compiled.ExpressionAssign{
			Inputs: []ids.VariableVertexId{a1},
			Output: a2,
			Text:   "a1 + 2",
		},
		SelectedOutputs: []ids.VariableVertexId{a1, a2},
	}
	env := Env{Evaluator: addingEvaluator{delta: 2}}

	out, err := runAssignStep(step, env, []Row{NewRow(storage.Row{a1: int64(10)})})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(12), out[0].Values[a2])
}

func TestRunNegationStepPassesThroughOnZeroInnerRows(t *testing.T) {
	x := ids.VariableVertexId(0)
	person := ids.VariableVertexId(1)

	source := &factSource{
		sortVar: person,
		data:    map[ids.VariableVertexId][]storage.Row{},
	}
	inner := &compiled.MatchExecutable{
		Steps: []compiled.Step{{
			Kind:         compiled.StepIntersection,
			SortVariable: person,
			Instructions: []compiled.Instruction{{Kind: compiled.InstructionHas, Lhs: person, Rhs: x, SortVariable: person}},
		}},
	}
	step := compiled.Step{
		Kind:            compiled.StepNestedNegation,
		Negation:        &compiled.NestedNegation{Inner: inner},
		SelectedOutputs: []ids.VariableVertexId{person},
	}
	env := Env{Source: source}

	out, err := runNegationStep(step, env, []Row{NewRow(storage.Row{person: int64(0)})}, Interrupt{})
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestRunDisjunctionStepConcatenatesBranches(t *testing.T) {
	x := ids.VariableVertexId(0)

	branchA := &compiled.MatchExecutable{Steps: []compiled.Step{{
		Kind:            compiled.StepCheck,
		Checks:          nil,
		SelectedOutputs: []ids.VariableVertexId{x},
	}}}
	branchB := &compiled.MatchExecutable{Steps: []compiled.Step{{
		Kind:            compiled.StepCheck,
		Checks:          nil,
		SelectedOutputs: []ids.VariableVertexId{x},
	}}}

	step := compiled.Step{
		Kind: compiled.StepNestedDisjunction,
		Disjunction: &compiled.NestedDisjunction{
			Branches:        []compiled.DisjunctionBranch{{Executable: branchA}, {Executable: branchB}},
			SelectedOutputs: []ids.VariableVertexId{x},
		},
	}
	env := Env{}

	out, err := runDisjunctionStep(step, env, []Row{NewRow(storage.Row{x: int64(7)})}, Interrupt{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 0, out[0].Provenance)
	require.Equal(t, 1, out[1].Provenance)
}
