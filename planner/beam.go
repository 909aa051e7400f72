package planner

import (
	"sort"
	"strconv"
	"strings"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/pattern"
	"github.com/patternql/querycore/stats"
)

// Group is one closed step's worth of committed plan state: the
// non-trivial constraint/Is members that intersect together, the trivial
// checks stashed alongside them, and the variables the group as a whole
// produces. Rather than modeling the plan ordering as a raw interleaved
// list of variable and pattern VertexIds, a Group keeps exactly the
// information lowering and the dedup hash need, grouped by the step
// boundary that produced it.
type Group struct {
	Members      []ids.PatternVertexId
	Stash        []ids.PatternVertexId
	ProducedVars []ids.VariableVertexId
	JoinVar      *ids.VariableVertexId
}

// PartialPlan is one beam-search node: a prefix of committed Groups plus
// the still-open step being assembled.
type PartialPlan struct {
	Groups []Group

	OngoingStep             ids.PatternVertexSet
	OngoingStepStash        ids.PatternVertexSet
	OngoingStepJoinVar      *ids.VariableVertexId
	OngoingStepProducedVars ids.VariableVertexSet

	CumulativeCost cost.Cost
	OngoingStepCost cost.Cost
	Heuristic       cost.Cost

	AllProducedVars   ids.VariableVertexSet
	RemainingPatterns ids.PatternVertexSet

	// Directions records the chosen traversal direction for every
	// pattern placed so far (members and stash), needed at lowering time
	// and to resolve join proposals for a step's first member.
	Directions map[ids.PatternVertexId]cost.Direction
}

// Clone performs the copy-on-write clone beam search extends from: a
// handful of small sets and a slice prefix, never a pointer-graph walk.
func (p *PartialPlan) Clone() *PartialPlan {
	np := &PartialPlan{
		Groups:                  append([]Group{}, p.Groups...),
		OngoingStep:             p.OngoingStep.Clone(),
		OngoingStepStash:        p.OngoingStepStash.Clone(),
		OngoingStepProducedVars: p.OngoingStepProducedVars.Clone(),
		CumulativeCost:          p.CumulativeCost,
		OngoingStepCost:         p.OngoingStepCost,
		Heuristic:               p.Heuristic,
		AllProducedVars:         p.AllProducedVars.Clone(),
		RemainingPatterns:       p.RemainingPatterns.Clone(),
		Directions:              make(map[ids.PatternVertexId]cost.Direction, len(p.Directions)),
	}
	for k, v := range p.Directions {
		np.Directions[k] = v
	}
	if p.OngoingStepJoinVar != nil {
		v := *p.OngoingStepJoinVar
		np.OngoingStepJoinVar = &v
	}
	return np
}

func (p *PartialPlan) availableVars() ids.VariableVertexSet {
	out := p.AllProducedVars.Clone()
	for v := range p.OngoingStepProducedVars {
		out.Add(v)
	}
	return out
}

// dedupKey identifies search-equivalent plans for beam deduplication:
// (remaining count, planned pattern ids, ongoing non-trivial pattern
// ids, join var), built from explicit sorted keys rather than hash-set
// iteration order so planning stays deterministic.
func (p *PartialPlan) dedupKey() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(len(p.RemainingPatterns)))
	sb.WriteByte('|')
	for _, g := range p.Groups {
		for _, id := range g.Members {
			sb.WriteString(strconv.FormatUint(uint64(id), 10))
			sb.WriteByte(',')
		}
		for _, id := range g.Stash {
			sb.WriteString(strconv.FormatUint(uint64(id), 10))
			sb.WriteByte(',')
		}
	}
	for _, id := range p.OngoingStepStash.Sorted() {
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, id := range p.OngoingStep.Sorted() {
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	if p.OngoingStepJoinVar != nil {
		sb.WriteString(strconv.FormatUint(uint64(*p.OngoingStepJoinVar), 10))
	} else {
		sb.WriteString("-")
	}
	return sb.String()
}

func newInitialPlan(g *pattern.Graph) *PartialPlan {
	p := &PartialPlan{
		OngoingStep:             ids.NewPatternVertexSet(),
		OngoingStepStash:        ids.NewPatternVertexSet(),
		OngoingStepProducedVars: ids.NewVariableVertexSet(),
		AllProducedVars:         ids.NewVariableVertexSet(),
		RemainingPatterns:       ids.NewPatternVertexSet(),
		Directions:              make(map[ids.PatternVertexId]cost.Direction),
		CumulativeCost:          cost.NOOP,
		OngoingStepCost:         cost.NOOP,
	}
	for id := range g.Vertices {
		p.RemainingPatterns.Add(id)
	}
	var inputVars []int
	for id, v := range g.Variables {
		if v.Kind == pattern.Input {
			inputVars = append(inputVars, int(id))
		}
	}
	sort.Ints(inputVars)
	for _, v := range inputVars {
		p.AllProducedVars.Add(ids.VariableVertexId(v))
	}
	p.Heuristic = cost.HeuristicCompletion(len(p.RemainingPatterns), len(p.AllProducedVars))
	return p
}

func allRequiredBound(vertex pattern.Vertex, available ids.VariableVertexSet) bool {
	for _, v := range vertex.RequiredVars() {
		if !available.Contains(v) {
			return false
		}
	}
	return true
}

// stashAllTrivial stashes every remaining pattern that is trivial given
// currently available variables. A trivial pattern produces no new
// variables, so one pass suffices; the loop runs to a fixpoint anyway to
// keep the invariant local.
func stashAllTrivial(plan *PartialPlan, g *pattern.Graph) {
	for {
		available := plan.availableVars()
		progressed := false
		for _, r := range plan.RemainingPatterns.Sorted() {
			vertex := g.Vertices[r]
			if !allRequiredBound(vertex, available) {
				continue
			}
			if vertex.IsTrivial(available) {
				delete(plan.RemainingPatterns, r)
				plan.OngoingStepStash.Add(r)
				plan.OngoingStepCost = cost.Chain(plan.OngoingStepCost, cost.Trivial)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func closeOngoingStep(plan *PartialPlan) {
	if len(plan.OngoingStep) == 0 && len(plan.OngoingStepStash) == 0 {
		return
	}
	group := Group{
		Members:      plan.OngoingStep.Sorted(),
		Stash:        plan.OngoingStepStash.Sorted(),
		ProducedVars: plan.OngoingStepProducedVars.Sorted(),
		JoinVar:      plan.OngoingStepJoinVar,
	}
	plan.Groups = append(plan.Groups, group)
	for _, v := range group.ProducedVars {
		plan.AllProducedVars.Add(v)
	}
	plan.CumulativeCost = cost.Chain(plan.CumulativeCost, plan.OngoingStepCost)

	plan.OngoingStep = ids.NewPatternVertexSet()
	plan.OngoingStepStash = ids.NewPatternVertexSet()
	plan.OngoingStepJoinVar = nil
	plan.OngoingStepProducedVars = ids.NewVariableVertexSet()
	plan.OngoingStepCost = cost.NOOP
}

// tryJoin detects whether candidate r can merge into the plan's
// currently open step: the unique shared produced variable must be
// joinable from the candidate's side and agree with the step's join
// variable (or, for a step of one member, with the join variable that
// member's direction implies).
func tryJoin(plan *PartialPlan, r ids.PatternVertexId, vertex pattern.Vertex, g *pattern.Graph) (ids.VariableVertexId, bool) {
	if !vertex.Kind().IsConstraint() {
		return 0, false
	}
	if len(plan.OngoingStep) == 0 {
		return 0, false
	}
	var candidates []ids.VariableVertexId
	for _, v := range vertex.Variables() {
		if plan.OngoingStepProducedVars.Contains(v) && vertex.CanJoinOn(v, plan.OngoingStepProducedVars) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) != 1 {
		return 0, false
	}
	candidate := candidates[0]

	if plan.OngoingStepJoinVar != nil {
		if candidate == *plan.OngoingStepJoinVar {
			return candidate, true
		}
		return 0, false
	}

	if len(plan.OngoingStep) != 1 {
		return 0, false
	}
	var memberID ids.PatternVertexId
	for id := range plan.OngoingStep {
		memberID = id
	}
	memberVertex := g.Vertices[memberID]
	memberDir, ok := plan.Directions[memberID]
	if !ok {
		return 0, false
	}
	proposed, ok := memberVertex.JoinFromDirectionAndInputs(memberDir, plan.OngoingStepProducedVars, plan.AllProducedVars)
	if !ok || proposed != candidate {
		return 0, false
	}
	return candidate, true
}

func directionForJoin(vertex pattern.Vertex, joinVar ids.VariableVertexId, stepProduced, allProduced ids.VariableVertexSet) (cost.Direction, bool) {
	if v, ok := vertex.JoinFromDirectionAndInputs(cost.Canonical, stepProduced, allProduced); ok && v == joinVar {
		return cost.Canonical, true
	}
	if v, ok := vertex.JoinFromDirectionAndInputs(cost.Reverse, stepProduced, allProduced); ok && v == joinVar {
		return cost.Reverse, true
	}
	return cost.Canonical, false
}

type extension struct {
	pattern      ids.PatternVertexId
	cost         cost.Cost
	direction    cost.Direction
	hasJoin      bool
	joinVar      ids.VariableVertexId
	producedVars []ids.VariableVertexId
	heuristic    cost.Cost
}

func enumerateExtensions(plan *PartialPlan, g *pattern.Graph, statistics stats.Oracle) ([]extension, error) {
	available := plan.availableVars()
	remainingAfter := len(plan.RemainingPatterns) - 1

	var out []extension
	for _, r := range plan.RemainingPatterns.Sorted() {
		vertex := g.Vertices[r]
		if !allRequiredBound(vertex, available) {
			continue
		}

		c, meta, err := vertex.CostAndMetadata(available, nil, g, statistics)
		if err != nil {
			return nil, err
		}
		produced := vertex.ProducedVars(available)
		heur := cost.Chain(c, cost.HeuristicCompletion(remainingAfter, len(available)+len(produced)))
		out = append(out, extension{pattern: r, cost: c, direction: meta.Direction, producedVars: produced, heuristic: heur})

		if joinVar, ok := tryJoin(plan, r, vertex, g); ok {
			if dir, ok2 := directionForJoin(vertex, joinVar, plan.OngoingStepProducedVars, plan.AllProducedVars); ok2 {
				fd := dir
				cb, _, err := vertex.CostAndMetadata(available, &fd, g, statistics)
				if err != nil {
					return nil, err
				}
				producedB := vertex.ProducedVars(available)
				heurB := cost.Chain(cb, cost.HeuristicCompletion(remainingAfter, len(available)+len(producedB)))
				out = append(out, extension{
					pattern: r, cost: cb, direction: dir, hasJoin: true, joinVar: joinVar,
					producedVars: producedB, heuristic: heurB,
				})
			}
		}
	}
	return out, nil
}

func joinKeySize(g *pattern.Graph, joinVar ids.VariableVertexId) float64 {
	if v := g.Variables[joinVar]; v != nil && v.EstimatedRestrictedSize > 0 {
		return float64(v.EstimatedRestrictedSize)
	}
	return 1
}

func applyExtension(plan *PartialPlan, ext extension, g *pattern.Graph) {
	delete(plan.RemainingPatterns, ext.pattern)
	plan.Directions[ext.pattern] = ext.direction

	isConstraint := g.Vertices[ext.pattern].Kind().IsConstraint()

	if ext.hasJoin {
		if len(plan.OngoingStep) == 0 {
			plan.OngoingStepCost = ext.cost
		} else {
			plan.OngoingStepCost = cost.Join(plan.OngoingStepCost, ext.cost, joinKeySize(g, ext.joinVar))
		}
		plan.OngoingStep.Add(ext.pattern)
		if plan.OngoingStepJoinVar == nil {
			jv := ext.joinVar
			plan.OngoingStepJoinVar = &jv
		}
		for _, v := range ext.producedVars {
			plan.OngoingStepProducedVars.Add(v)
		}
	} else {
		if len(plan.OngoingStep) > 0 {
			closeOngoingStep(plan)
		}
		plan.OngoingStep.Add(ext.pattern)
		plan.OngoingStepCost = ext.cost
		for _, v := range ext.producedVars {
			plan.OngoingStepProducedVars.Add(v)
		}
		if !isConstraint {
			// Non-constraint extensions (Expression, FunctionCall,
			// Disjunction, Negation) never participate in a join, so
			// their step closes immediately.
			closeOngoingStep(plan)
		}
	}

	produced := len(plan.AllProducedVars) + len(plan.OngoingStepProducedVars)
	plan.Heuristic = cost.Chain(cost.Chain(plan.CumulativeCost, plan.OngoingStepCost),
		cost.HeuristicCompletion(len(plan.RemainingPatterns), produced))
}

func clampBeamWidth(numPatterns int) int {
	w := 2 * numPatterns
	if w < cost.MinBeamWidth {
		w = cost.MinBeamWidth
	}
	if w > cost.MaxBeamWidth {
		w = cost.MaxBeamWidth
	}
	return w
}

func initialExtensionWidth(numPatterns int) int {
	w := numPatterns/2 + 5
	if w < cost.MinExtensionWidth {
		w = cost.MinExtensionWidth
	}
	return w
}

// decayWidth shrinks a search width by one for every two completed
// iterations, floored. Callers pass the INITIAL width and the absolute
// iteration count so the decay stays linear rather than compounding.
func decayWidth(width, iteration, floor int) int {
	w := width - iteration/2
	if w < floor {
		w = floor
	}
	return w
}

func stepIteration(beam []*PartialPlan, g *pattern.Graph, statistics stats.Oracle, extWidth int) ([]*PartialPlan, error) {
	var produced []*PartialPlan
	for _, plan := range beam {
		if len(plan.RemainingPatterns) == 0 {
			produced = append(produced, plan)
			continue
		}
		stashAllTrivial(plan, g)
		if len(plan.RemainingPatterns) == 0 {
			produced = append(produced, plan)
			continue
		}

		exts, err := enumerateExtensions(plan, g, statistics)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(exts, func(i, j int) bool { return exts[i].heuristic.Cost < exts[j].heuristic.Cost })
		if len(exts) > extWidth {
			exts = exts[:extWidth]
		}
		for _, ext := range exts {
			np := plan.Clone()
			applyExtension(np, ext, g)
			produced = append(produced, np)
		}
	}
	return produced, nil
}

func dedupAndTrim(plans []*PartialPlan, beamWidth int) []*PartialPlan {
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].Heuristic.Cost < plans[j].Heuristic.Cost })
	seen := make(map[string]bool, len(plans))
	out := make([]*PartialPlan, 0, beamWidth)
	for _, p := range plans {
		key := p.dedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
		if len(out) >= beamWidth {
			break
		}
	}
	return out
}
