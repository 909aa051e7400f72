package pattern

import (
	"testing"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/stats"
	"github.com/patternql/querycore/value"
	"github.com/stretchr/testify/require"
)

func personHasNameAndAge() Conjunction {
	return Conjunction{
		Variables: []VariableSpec{
			{Name: "person", Category: CategoryLocal, Kind: Thing, CandidateTypes: []string{"person"}},
			{Name: "N", Category: CategoryLocal, Kind: Value, CandidateTypes: []string{"name"}},
			{Name: "A", Category: CategoryLocal, Kind: Value, CandidateTypes: []string{"age"}},
		},
		Has: []HasSpec{
			{Owner: "person", Attribute: "N"},
			{Owner: "person", Attribute: "A"},
		},
	}
}

func TestBuildGraphRegistersVariablesAndConstraints(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 3)

	g, err := BuildGraph(personHasNameAndAge(), o, nil, nil)
	require.NoError(t, err)
	require.Len(t, g.Variables, 3)
	require.Len(t, g.Vertices, 2)
}

func TestBuildGraphRejectsListVariables(t *testing.T) {
	conj := Conjunction{
		Variables: []VariableSpec{{Name: "x", IsList: true}},
	}
	_, err := BuildGraph(conj, nil, nil, nil)
	require.Error(t, err)
	var unsupported *UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "Lists", unsupported.Feature)
}

func TestBuildGraphRejectsOptionalVariables(t *testing.T) {
	conj := Conjunction{
		Variables: []VariableSpec{{Name: "x", IsOptional: true}},
	}
	_, err := BuildGraph(conj, nil, nil, nil)
	require.Error(t, err)
	var unsupported *UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "Optionals", unsupported.Feature)
}

func TestImprintBoundsFromComparison(t *testing.T) {
	conj := Conjunction{
		Variables: []VariableSpec{
			{Name: "A", Category: CategoryLocal, Kind: Value},
		},
		Comparisons: []ComparisonSpec{
			{Op: Gt, Lhs: VarSpecOperand("A"), Rhs: ConstSpecOperand(value.Long(10))},
		},
	}
	g, err := BuildGraph(conj, nil, nil, nil)
	require.NoError(t, err)

	v := g.Variables[g.VariableByName["A"]]
	require.True(t, v.Bounds.HasLower)
	require.Equal(t, value.Long(10), v.Bounds.LowerBound)
	require.False(t, v.Bounds.LowerInclusive)
}

func TestIsConstraintImprintsBidirectionalLinks(t *testing.T) {
	conj := Conjunction{
		Variables: []VariableSpec{
			{Name: "x", Category: CategoryLocal, Kind: Thing},
			{Name: "y", Category: CategoryLocal, Kind: Thing},
		},
		Is: []IsSpec{{Lhs: "x", Rhs: "y"}},
	}
	g, err := BuildGraph(conj, nil, nil, nil)
	require.NoError(t, err)

	xID := g.VariableByName["x"]
	yID := g.VariableByName["y"]
	require.Contains(t, g.Variables[xID].IsLinks, yID)
	require.Contains(t, g.Variables[yID].IsLinks, xID)
}

func TestConstraintVertexDirectionPrefersBoundSide(t *testing.T) {
	o := stats.NewMemoryOracle().WithTypeCount("person", 1000).WithAttributeValues("name", 5)
	conj := personHasNameAndAge()
	g, err := BuildGraph(conj, o, nil, nil)
	require.NoError(t, err)

	personID := g.VariableByName["person"]
	nameID := g.VariableByName["N"]

	var hasNameVertex *ConstraintVertex
	for _, v := range g.Vertices {
		if cv, ok := v.(*ConstraintVertex); ok && cv.Kind() == KindHas && cv.Rhs == nameID {
			hasNameVertex = cv
		}
	}
	require.NotNil(t, hasNameVertex)

	bound := ids.NewVariableVertexSet(personID)
	c, meta, err := hasNameVertex.CostAndMetadata(bound, nil, g, o)
	require.NoError(t, err)
	require.Equal(t, cost.Canonical, meta.Direction)
	require.False(t, c.IsInfinite())
}

func TestConstraintVertexFullyBoundIsTrivial(t *testing.T) {
	o := stats.NewMemoryOracle()
	conj := personHasNameAndAge()
	g, err := BuildGraph(conj, o, nil, nil)
	require.NoError(t, err)

	personID := g.VariableByName["person"]
	nameID := g.VariableByName["N"]
	var hasNameVertex *ConstraintVertex
	for _, v := range g.Vertices {
		if cv, ok := v.(*ConstraintVertex); ok && cv.Kind() == KindHas && cv.Rhs == nameID {
			hasNameVertex = cv
		}
	}
	require.NotNil(t, hasNameVertex)

	bound := ids.NewVariableVertexSet(personID, nameID)
	require.True(t, hasNameVertex.IsTrivial(bound))
	c, _, err := hasNameVertex.CostAndMetadata(bound, nil, g, o)
	require.NoError(t, err)
	require.Equal(t, cost.Trivial, c)
}
