package planner

import (
	"fmt"

	"github.com/patternql/querycore/compiled"
	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/pattern"
)

// constraintInstructionKind maps a Constraint-sub-kind vertex to its
// compiled instruction kind.
func constraintInstructionKind(k pattern.VertexKind) (compiled.InstructionKind, bool) {
	switch k {
	case pattern.KindIsa:
		return compiled.InstructionIsa, true
	case pattern.KindHas:
		return compiled.InstructionHas, true
	case pattern.KindLinks:
		return compiled.InstructionLinks, true
	case pattern.KindIndexedRelation:
		return compiled.InstructionIndexedRelation, true
	case pattern.KindSub:
		return compiled.InstructionSub, true
	case pattern.KindOwns:
		return compiled.InstructionOwns, true
	case pattern.KindPlays:
		return compiled.InstructionPlays, true
	case pattern.KindRelates:
		return compiled.InstructionRelates, true
	case pattern.KindTypeList:
		return compiled.InstructionTypeList, true
	case pattern.KindIid:
		return compiled.InstructionIid, true
	default:
		return 0, false
	}
}

func instructionInputs(priorVars ids.VariableVertexSet, hasRhs bool, lhs, rhs ids.VariableVertexId) compiled.Inputs {
	if !hasRhs {
		if priorVars.Contains(lhs) {
			return compiled.SingleInput(lhs)
		}
		return compiled.NoInputs()
	}
	lb, rb := priorVars.Contains(lhs), priorVars.Contains(rhs)
	switch {
	case lb && rb:
		return compiled.DualInput(lhs, rhs)
	case lb:
		return compiled.SingleInput(lhs)
	case rb:
		return compiled.SingleInput(rhs)
	default:
		return compiled.NoInputs()
	}
}

// buildInstruction lowers a single Constraint/Is/Comparison/
// LinksDeduplication pattern-vertex into its compiled.Instruction.
func buildInstruction(id ids.PatternVertexId, g *pattern.Graph, directions map[ids.PatternVertexId]cost.Direction, priorVars ids.VariableVertexSet, sortVar ids.VariableVertexId) (compiled.Instruction, error) {
	vertex := g.Vertices[id]
	dir := directions[id]

	switch v := vertex.(type) {
	case *pattern.ConstraintVertex:
		kind, ok := constraintInstructionKind(v.Kind())
		if !ok {
			return compiled.Instruction{}, fmt.Errorf("planner: unsupported constraint kind %v", v.Kind())
		}
		instr := compiled.Instruction{
			Kind:         kind,
			Direction:    dir,
			Lhs:          v.Lhs,
			Rhs:          v.Rhs,
			RoleType:     v.RoleType,
			Player2:      v.Player2,
			Role1:        v.Role1,
			Role2:        v.Role2,
			Types:        v.Types,
			IidValue:     v.IidValue,
			SortVariable: sortVar,
			Inputs:       instructionInputs(priorVars, v.HasRhs, v.Lhs, v.Rhs),
		}
		if v.Kind() == pattern.KindIndexedRelation && dir == cost.Reverse {
			// Reverse swaps (player1, player2) and their role sets.
			instr.Rhs, instr.Player2 = instr.Player2, instr.Rhs
			instr.Role1, instr.Role2 = instr.Role2, instr.Role1
		}
		return instr, nil

	case *pattern.IsVertex:
		return compiled.Instruction{
			Kind:         compiled.InstructionIs,
			Direction:    dir,
			Lhs:          v.Lhs,
			Rhs:          v.Rhs,
			SortVariable: sortVar,
			Inputs:       instructionInputs(priorVars, true, v.Lhs, v.Rhs),
		}, nil

	case *pattern.ComparisonVertex:
		return compiled.Instruction{
			Kind:         compiled.InstructionComparison,
			CompareOp:    v.Op,
			LhsOperand:   v.Lhs,
			RhsOperand:   v.Rhs,
			SortVariable: sortVar,
			Inputs:       compiled.NoInputs(),
		}, nil

	case *pattern.LinksDeduplicationVertex:
		return compiled.Instruction{
			Kind:         compiled.InstructionLinksDeduplication,
			Lhs:          v.Player1,
			Rhs:          v.Player2,
			SortVariable: sortVar,
			Inputs:       compiled.DualInput(v.Player1, v.Player2),
		}, nil

	default:
		return compiled.Instruction{}, fmt.Errorf("planner: vertex %v cannot lower to an instruction", id)
	}
}

// stepSortVariable picks the variable a step's iterators sort and join
// on: the join variable when the step has one, otherwise the first side
// the first member PRODUCES under its chosen direction — an
// already-bound side is an iterator prefix, not a sort column.
func stepSortVariable(group Group, g *pattern.Graph, directions map[ids.PatternVertexId]cost.Direction, priorVars ids.VariableVertexSet) ids.VariableVertexId {
	if group.JoinVar != nil {
		return *group.JoinVar
	}
	if len(group.Members) == 0 {
		return 0
	}
	id := group.Members[0]

	firstProduced := func(sides []ids.VariableVertexId) ids.VariableVertexId {
		for _, s := range sides {
			if !priorVars.Contains(s) {
				return s
			}
		}
		return sides[0]
	}

	switch v := g.Vertices[id].(type) {
	case *pattern.ConstraintVertex:
		if !v.HasRhs {
			return v.Lhs
		}
		sides := []ids.VariableVertexId{v.Lhs, v.Rhs}
		if v.Kind() == pattern.KindIndexedRelation {
			sides = append(sides, v.Player2)
		}
		if directions[id] == cost.Reverse {
			sides[0], sides[1] = sides[1], sides[0]
		}
		return firstProduced(sides)
	case *pattern.IsVertex:
		return firstProduced([]ids.VariableVertexId{v.Lhs, v.Rhs})
	default:
		vars := v.Variables()
		if len(vars) > 0 {
			return firstProduced(vars)
		}
		return 0
	}
}

// Lower compiles this plan into an executable instruction sequence.
// Nested disjunction/negation branches are lowered recursively.
func (cp *ConjunctionPlan) Lower() (*compiled.MatchExecutable, error) {
	priorVars := ids.NewVariableVertexSet()
	for _, v := range cp.inputVars {
		priorVars.Add(v)
	}

	steps := make([]compiled.Step, 0, len(cp.groups))
	for _, group := range cp.groups {
		step, err := lowerGroupWithPrior(group, cp.graph, cp.directions, priorVars)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		for _, v := range group.ProducedVars {
			priorVars.Add(v)
		}
	}

	return &compiled.MatchExecutable{
		Steps:      steps,
		OutputVars: cp.outputVars,
		TotalCost:  cp.totalCost,
	}, nil
}

// carryForward returns every variable bound before this step plus every
// variable this step newly produces, sorted. A step's output row must
// carry every variable bound so far, not just the ones it produced
// itself, since a later step (or the final output) may still need a
// variable produced several steps back.
func carryForward(priorVars ids.VariableVertexSet, produced []ids.VariableVertexId) []ids.VariableVertexId {
	set := priorVars.Clone()
	for _, v := range produced {
		set.Add(v)
	}
	return set.Sorted()
}

// lowerGroupWithPrior lowers one committed Group into a compiled.Step,
// given the set of variables already bound by earlier steps.
func lowerGroupWithPrior(group Group, g *pattern.Graph, directions map[ids.PatternVertexId]cost.Direction, priorVars ids.VariableVertexSet) (compiled.Step, error) {
	selected := carryForward(priorVars, group.ProducedVars)

	if len(group.Members) == 1 {
		if step, handled, err := lowerSpecialGroup(group, g, selected); handled {
			return step, err
		}
	}

	sortVar := stepSortVariable(group, g, directions, priorVars)

	instructions := make([]compiled.Instruction, 0, len(group.Members))
	for _, id := range group.Members {
		instr, err := buildInstruction(id, g, directions, priorVars, sortVar)
		if err != nil {
			return compiled.Step{}, err
		}
		instructions = append(instructions, instr)
	}
	checks := make([]compiled.Instruction, 0, len(group.Stash))
	for _, id := range group.Stash {
		instr, err := buildInstruction(id, g, directions, priorVars, sortVar)
		if err != nil {
			return compiled.Step{}, err
		}
		checks = append(checks, instr)
	}

	kind := compiled.StepIntersection
	if len(instructions) == 0 {
		kind = compiled.StepCheck
	}

	return compiled.Step{
		Kind:            kind,
		SortVariable:    sortVar,
		Instructions:    instructions,
		Checks:          checks,
		SelectedOutputs: selected,
	}, nil
}

// lowerSpecialGroup handles the five step kinds backed by exactly one
// non-constraint vertex: ExpressionAssign, FunctionCall, NestedDisjunction,
// NestedNegation, Unsatisfiable. Returns handled=false for ordinary
// constraint groups.
func lowerSpecialGroup(group Group, g *pattern.Graph, selected []ids.VariableVertexId) (compiled.Step, bool, error) {
	switch v := g.Vertices[group.Members[0]].(type) {
	case *pattern.ExpressionVertex:
		return compiled.Step{
			Kind: compiled.StepExpressionAssign,
			Expression: &compiled.ExpressionAssign{
				Inputs: v.Inputs,
				Output: v.Output,
				Text:   v.Text,
				Eval:   v.Eval,
			},
			SelectedOutputs: selected,
		}, true, nil

	case *pattern.FunctionCallVertex:
		return compiled.Step{
			Kind: compiled.StepFunctionCall,
			Function: &compiled.FunctionCall{
				FnID:    v.FnID,
				Args:    v.Args,
				Outputs: v.Outputs,
			},
			SelectedOutputs: selected,
		}, true, nil

	case *pattern.DisjunctionVertex:
		branches := make([]compiled.DisjunctionBranch, 0, len(v.Branches))
		for _, b := range v.Branches {
			cp, ok := b.(*ConjunctionPlan)
			if !ok {
				return compiled.Step{}, true, fmt.Errorf("planner: disjunction branch is not a planned conjunction")
			}
			exec, err := cp.Lower()
			if err != nil {
				return compiled.Step{}, true, fmt.Errorf("planner: lowering disjunction branch: %w", err)
			}
			branches = append(branches, compiled.DisjunctionBranch{Executable: exec})
		}
		return compiled.Step{
			Kind: compiled.StepNestedDisjunction,
			Disjunction: &compiled.NestedDisjunction{
				Branches:        branches,
				SelectedOutputs: v.SelectedOutputs,
			},
			SelectedOutputs: selected,
		}, true, nil

	case *pattern.NegationVertex:
		inner, ok := v.Inner.(*ConjunctionPlan)
		if !ok {
			return compiled.Step{}, true, fmt.Errorf("planner: negation inner is not a planned conjunction")
		}
		exec, err := inner.Lower()
		if err != nil {
			return compiled.Step{}, true, fmt.Errorf("planner: lowering negation body: %w", err)
		}
		return compiled.Step{
			Kind:            compiled.StepNestedNegation,
			Negation:        &compiled.NestedNegation{Inner: exec},
			SelectedOutputs: selected,
		}, true, nil

	case *pattern.UnsatisfiableVertex:
		return compiled.Step{
			Kind:            compiled.StepUnsatisfiable,
			SelectedOutputs: selected,
		}, true, nil
	}
	return compiled.Step{}, false, nil
}
