package pattern

import (
	"fmt"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/value"
)

// FunctionCostOracle gives the planner a cost estimate and argument/return
// variable positions for a function call, without the planner needing to
// know how the function is compiled or executed — concrete planning of
// functions is external. planner.FunctionCostOracle aliases this
// interface; it is declared here to avoid an import cycle (planner
// imports pattern).
type FunctionCostOracle interface {
	Cost(fnID string) (c cost.Cost, argPositions int, returnPositions int, err error)
}

// Evaluator evaluates an expression or function body over bound argument
// values. Compiling expressions/functions is out of scope for the core;
// this is the thin hook the core calls through.
type Evaluator func(args []value.Value) ([]value.Value, error)

// ExpressionVertex assigns the result of evaluating an expression over
// input variables into a single output variable, of which it is the one
// producer.
type ExpressionVertex struct {
	id     ids.PatternVertexId
	Inputs []ids.VariableVertexId
	Output ids.VariableVertexId
	Text   string
	Eval   Evaluator
}

// NewExpression constructs an Expression vertex.
func NewExpression(id ids.PatternVertexId, inputs []ids.VariableVertexId, output ids.VariableVertexId, text string, eval Evaluator) *ExpressionVertex {
	return &ExpressionVertex{id: id, Inputs: inputs, Output: output, Text: text, Eval: eval}
}

func (e *ExpressionVertex) ID() ids.PatternVertexId { return e.id }
func (e *ExpressionVertex) Kind() VertexKind        { return KindExpression }

func (e *ExpressionVertex) Variables() []ids.VariableVertexId {
	out := make([]ids.VariableVertexId, 0, len(e.Inputs)+1)
	out = append(out, e.Inputs...)
	out = append(out, e.Output)
	return out
}

func (e *ExpressionVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool { return false }

func (e *ExpressionVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (e *ExpressionVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	return cost.Cost{Cost: 1, IORatio: 1}, cost.MetaData{}, nil
}

func (e *ExpressionVertex) IsTrivial(bound ids.VariableVertexSet) bool { return false }

func (e *ExpressionVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	if bound.Contains(e.Output) {
		return nil
	}
	return []ids.VariableVertexId{e.Output}
}

func (e *ExpressionVertex) RequiredVars() []ids.VariableVertexId { return e.Inputs }

// FunctionCallVertex invokes a function over bound argument variables,
// binding one or more return positions to output variables.
type FunctionCallVertex struct {
	id      ids.PatternVertexId
	FnID    string
	Args    []ids.VariableVertexId
	Outputs []ids.VariableVertexId
	oracle  FunctionCostOracle
}

// NewFunctionCall constructs a FunctionCall vertex. oracle supplies the
// cost estimate; its argument/return position counts must match len(args)
// and len(outputs) respectively or planning fails when costed.
func NewFunctionCall(id ids.PatternVertexId, fnID string, args, outputs []ids.VariableVertexId, oracle FunctionCostOracle) *FunctionCallVertex {
	return &FunctionCallVertex{id: id, FnID: fnID, Args: args, Outputs: outputs, oracle: oracle}
}

func (f *FunctionCallVertex) ID() ids.PatternVertexId { return f.id }
func (f *FunctionCallVertex) Kind() VertexKind        { return KindFunctionCall }

func (f *FunctionCallVertex) Variables() []ids.VariableVertexId {
	out := make([]ids.VariableVertexId, 0, len(f.Args)+len(f.Outputs))
	out = append(out, f.Args...)
	out = append(out, f.Outputs...)
	return out
}

func (f *FunctionCallVertex) CanJoinOn(ids.VariableVertexId, ids.VariableVertexSet) bool { return false }

func (f *FunctionCallVertex) JoinFromDirectionAndInputs(cost.Direction, ids.VariableVertexSet, ids.VariableVertexSet) (ids.VariableVertexId, bool) {
	return 0, false
}

func (f *FunctionCallVertex) CostAndMetadata(bound ids.VariableVertexSet, forced *cost.Direction, g *Graph, oracle stats.Oracle) (cost.Cost, cost.MetaData, error) {
	if f.oracle == nil {
		return cost.Cost{Cost: 1, IORatio: 1}, cost.MetaData{}, nil
	}
	c, argPositions, returnPositions, err := f.oracle.Cost(f.FnID)
	if err != nil {
		return cost.Cost{}, cost.MetaData{}, fmt.Errorf("pattern: function cost oracle for %q: %w", f.FnID, err)
	}
	if argPositions != len(f.Args) || returnPositions != len(f.Outputs) {
		return cost.Cost{}, cost.MetaData{}, fmt.Errorf("pattern: function %q arity mismatch: oracle expects %d args/%d returns, call has %d/%d",
			f.FnID, argPositions, returnPositions, len(f.Args), len(f.Outputs))
	}
	return c, cost.MetaData{}, nil
}

func (f *FunctionCallVertex) IsTrivial(bound ids.VariableVertexSet) bool { return false }

func (f *FunctionCallVertex) ProducedVars(bound ids.VariableVertexSet) []ids.VariableVertexId {
	var out []ids.VariableVertexId
	for _, o := range f.Outputs {
		if !bound.Contains(o) {
			out = append(out, o)
		}
	}
	return out
}

func (f *FunctionCallVertex) RequiredVars() []ids.VariableVertexId { return f.Args }
