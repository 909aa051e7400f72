// Package planner turns a Conjunction into a cost-ranked MatchExecutable
// using beam search over the bipartite pattern graph (package pattern).
package planner

import (
	"sort"

	"github.com/patternql/querycore/annotations"
	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/pattern"
	"github.com/patternql/querycore/stats"
)

// FunctionCostOracle is re-exported under the planner package's own name
// but is declared in package pattern to avoid an import cycle:
// pattern.BuildGraph needs the interface to cost FunctionCall vertices,
// and pattern cannot import planner.
type FunctionCostOracle = pattern.FunctionCostOracle

// ConjunctionPlan is a fully-planned conjunction: a cost-ranked sequence
// of Groups (closed intersection/check/expression/disjunction/negation
// steps) ready to be lowered into a compiled.MatchExecutable. It
// implements pattern.BranchPlan so it can itself serve as a branch of an
// outer Disjunction/Negation.
type ConjunctionPlan struct {
	graph      *pattern.Graph
	groups     []Group
	directions map[ids.PatternVertexId]cost.Direction

	totalCost  cost.Cost
	inputVars  []ids.VariableVertexId
	outputVars []ids.VariableVertexId
}

func (cp *ConjunctionPlan) TotalCost() cost.Cost                    { return cp.totalCost }
func (cp *ConjunctionPlan) RequiredInputs() []ids.VariableVertexId  { return cp.inputVars }
func (cp *ConjunctionPlan) ProducedOutputs() []ids.VariableVertexId { return cp.outputVars }

// Graph exposes the underlying pattern graph, needed by Lower and by
// tests asserting on variable names/kinds.
func (cp *ConjunctionPlan) Graph() *pattern.Graph { return cp.graph }

// Groups exposes the committed step groups in plan order.
func (cp *ConjunctionPlan) Groups() []Group { return cp.groups }

// Directions exposes the chosen traversal direction per pattern-vertex.
func (cp *ConjunctionPlan) Directions() map[ids.PatternVertexId]cost.Direction { return cp.directions }

// PlanConjunction builds the pattern graph for conjunction and runs beam
// search over it, recursively planning any nested disjunction/negation
// branches first so inner search never depends on the outer beam's
// choices.
func PlanConjunction(conjunction pattern.Conjunction, statistics stats.Oracle, fnOracle FunctionCostOracle, opts Options) (*ConjunctionPlan, error) {
	planNested := func(c pattern.Conjunction, boundInputs []string) (pattern.BranchPlan, error) {
		return PlanConjunction(c, statistics, fnOracle, opts)
	}
	g, err := pattern.BuildGraph(conjunction, statistics, fnOracle, planNested)
	if err != nil {
		return nil, err
	}
	return planGraph(g, statistics, opts)
}

func planGraph(g *pattern.Graph, statistics stats.Oracle, opts Options) (*ConjunctionPlan, error) {
	collector := opts.collector()
	numPatterns := len(g.Vertices)

	collector.Add(annotations.Event{Name: annotations.PlanInvoked, Data: map[string]interface{}{"pattern.count": numPatterns}})

	initialBeamWidth := opts.BeamWidthOverride
	if initialBeamWidth == 0 {
		initialBeamWidth = clampBeamWidth(numPatterns)
	}
	initialExtWidth := opts.ExtensionWidthOverride
	if initialExtWidth == 0 {
		initialExtWidth = initialExtensionWidth(numPatterns)
	}
	beamWidth, extWidth := initialBeamWidth, initialExtWidth

	beam := []*PartialPlan{newInitialPlan(g)}

	for iter := 0; iter < numPatterns; iter++ {
		anyRemaining := false
		for _, p := range beam {
			if len(p.RemainingPatterns) > 0 {
				anyRemaining = true
				break
			}
		}
		if !anyRemaining {
			break
		}

		produced, err := stepIteration(beam, g, statistics, extWidth)
		if err != nil {
			collector.Add(annotations.Event{Name: annotations.ErrorPlanning, Data: map[string]interface{}{"error": err.Error()}})
			return nil, err
		}
		if len(produced) == 0 {
			err := &ExpectedPlannableConjunctionError{Detail: "no beam member could be extended"}
			collector.Add(annotations.Event{Name: annotations.ErrorPlanning, Data: map[string]interface{}{"error": err.Error()}})
			return nil, err
		}

		beam = dedupAndTrim(produced, beamWidth)
		collector.Add(annotations.Event{Name: annotations.BeamIterationComplete, Data: map[string]interface{}{
			"iteration":  iter,
			"beam.size":  len(beam),
			"kept":       len(beam),
			"considered": len(produced),
		}})

		beamWidth = decayWidth(initialBeamWidth, iter+1, cost.MinBeamWidth)
		extWidth = decayWidth(initialExtWidth, iter+1, cost.MinExtensionWidth)
	}

	if len(beam) == 0 {
		err := &ExpectedPlannableConjunctionError{}
		collector.Add(annotations.Event{Name: annotations.ErrorPlanning, Data: map[string]interface{}{"error": err.Error()}})
		return nil, err
	}

	// Compare on cumulative-plus-still-open cost, not raw CumulativeCost:
	// CumulativeCost only reflects steps already closed by closeOngoingStep,
	// so a plan with more work left in its open step would otherwise look
	// artificially cheaper than one that already folded it in.
	finalCost := func(p *PartialPlan) float64 { return cost.Chain(p.CumulativeCost, p.OngoingStepCost).Cost }
	// stepCount breaks ties in the simplified cost model's favor of fewer
	// total steps: joining two patterns into one step and running them as
	// two separate steps can cost-model identically, but fewer steps means
	// less per-step overhead in practice.
	stepCount := func(p *PartialPlan) int {
		n := len(p.Groups)
		if len(p.OngoingStep) > 0 || len(p.OngoingStepStash) > 0 {
			n++
		}
		return n
	}

	best := beam[0]
	for _, p := range beam[1:] {
		switch {
		case finalCost(p) < finalCost(best):
			best = p
		case finalCost(p) == finalCost(best) && stepCount(p) < stepCount(best):
			best = p
		}
	}
	closeOngoingStep(best)

	plan := toConjunctionPlan(best, g)
	collector.Add(annotations.Event{Name: annotations.PlanCompleted, Data: map[string]interface{}{"step.count": len(plan.groups)}})
	return plan, nil
}

func toConjunctionPlan(p *PartialPlan, g *pattern.Graph) *ConjunctionPlan {
	var varIDs []int
	for id := range g.Variables {
		varIDs = append(varIDs, int(id))
	}
	sort.Ints(varIDs)

	var inputVars, outputVars []ids.VariableVertexId
	for _, raw := range varIDs {
		id := ids.VariableVertexId(raw)
		v := g.Variables[id]
		if v.Kind == pattern.Input {
			inputVars = append(inputVars, id)
		} else if p.AllProducedVars.Contains(id) {
			outputVars = append(outputVars, id)
		}
	}

	return &ConjunctionPlan{
		graph:      g,
		groups:     p.Groups,
		directions: p.Directions,
		totalCost:  p.CumulativeCost,
		inputVars:  inputVars,
		outputVars: outputVars,
	}
}
