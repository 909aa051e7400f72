package planner

import (
	"testing"

	"github.com/patternql/querycore/pattern"
	"github.com/patternql/querycore/stats"
	"github.com/stretchr/testify/require"
)

// personHasNameAndAge builds `$person has N, has A` over a single Thing
// variable and two Value attributes, intersecting on $person.
func personHasNameAndAge() pattern.Conjunction {
	return pattern.Conjunction{
		Variables: []pattern.VariableSpec{
			{Name: "person", Category: pattern.CategoryLocal, Kind: pattern.Thing, CandidateTypes: []string{"person"}},
			{Name: "N", Category: pattern.CategoryLocal, Kind: pattern.Value, CandidateTypes: []string{"name"}},
			{Name: "A", Category: pattern.CategoryLocal, Kind: pattern.Value, CandidateTypes: []string{"age"}},
		},
		Has: []pattern.HasSpec{
			{Owner: "person", Attribute: "N"},
			{Owner: "person", Attribute: "A"},
		},
	}
}

func TestPlanConjunctionOrdersAllPatterns(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5).WithAttributeValues("name", 5).WithAttributeValues("age", 5)

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, plan)

	total := 0
	for _, g := range plan.groups {
		total += len(g.Members) + len(g.Stash)
	}
	require.Equal(t, 2, total)
}

func TestPlanConjunctionJoinsSharedVariableIntoOneStep(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5).WithAttributeValues("name", 5).WithAttributeValues("age", 5)

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, DefaultOptions())
	require.NoError(t, err)

	// Both Has constraints share $person: a well-formed plan should
	// intersect them into a single Intersection group rather than two
	// separate single-member steps.
	found := false
	for _, g := range plan.groups {
		if len(g.Members) == 2 {
			found = true
		}
	}
	require.True(t, found, "expected the two Has constraints to join into one group")
}

func TestPlanConjunctionProducesAllVariables(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5).WithAttributeValues("name", 5).WithAttributeValues("age", 5)

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, plan.outputVars, 3) // person, N, A all bound by the plan
}

func TestPlanConjunctionEmptyConjunctionTerminatesImmediately(t *testing.T) {
	plan, err := PlanConjunction(pattern.Conjunction{}, stats.NewMemoryOracle(), nil, DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, plan.groups)
}

func TestPlanConjunctionRespectsBeamWidthOverride(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5)
	opts := Options{BeamWidthOverride: 2, ExtensionWidthOverride: 2}

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, opts)
	require.NoError(t, err)
	require.NotNil(t, plan)
}

func TestLowerProducesOneStepPerGroup(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5).WithAttributeValues("name", 5).WithAttributeValues("age", 5)

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, DefaultOptions())
	require.NoError(t, err)

	exec, err := plan.Lower()
	require.NoError(t, err)
	require.Len(t, exec.Steps, len(plan.groups))
}

func TestLowerIntersectionStepCarriesBothInstructions(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 5).WithAttributeValues("name", 5).WithAttributeValues("age", 5)

	plan, err := PlanConjunction(personHasNameAndAge(), o, nil, DefaultOptions())
	require.NoError(t, err)

	exec, err := plan.Lower()
	require.NoError(t, err)

	total := 0
	for _, s := range exec.Steps {
		total += len(s.Instructions) + len(s.Checks)
	}
	require.Equal(t, 2, total)
}
