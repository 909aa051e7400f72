package planner

import (
	"testing"

	"github.com/patternql/querycore/cost"
	"github.com/patternql/querycore/ids"
	"github.com/stretchr/testify/require"
)

func TestClampBeamWidthRespectsBounds(t *testing.T) {
	require.Equal(t, cost.MinBeamWidth, clampBeamWidth(0))
	require.Equal(t, 10, clampBeamWidth(5))
	require.Equal(t, cost.MaxBeamWidth, clampBeamWidth(1000))
}

func TestInitialExtensionWidthIsHalfPatternsPlusFive(t *testing.T) {
	require.Equal(t, 5, initialExtensionWidth(0))
	require.Equal(t, 7, initialExtensionWidth(4))
}

func TestDecayWidthDecaysEveryTwoIterations(t *testing.T) {
	require.Equal(t, 10, decayWidth(10, 0, 2))
	require.Equal(t, 10, decayWidth(10, 1, 2))
	require.Equal(t, 9, decayWidth(10, 2, 2))
	require.Equal(t, 2, decayWidth(10, 100, 2))
}

func TestDedupAndTrimKeepsLowestHeuristicPerKey(t *testing.T) {
	cheap := &PartialPlan{
		Heuristic:         cost.Cost{Cost: 1},
		RemainingPatterns: ids.NewPatternVertexSet(),
		OngoingStep:       ids.NewPatternVertexSet(),
		OngoingStepStash:  ids.NewPatternVertexSet(),
	}
	expensiveDup := &PartialPlan{
		Heuristic:         cost.Cost{Cost: 5},
		RemainingPatterns: ids.NewPatternVertexSet(),
		OngoingStep:       ids.NewPatternVertexSet(),
		OngoingStepStash:  ids.NewPatternVertexSet(),
	}
	out := dedupAndTrim([]*PartialPlan{expensiveDup, cheap}, 5)
	require.Len(t, out, 1)
	require.Equal(t, 1.0, out[0].Heuristic.Cost)
}
