package cost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainComposesSequentially(t *testing.T) {
	a := Cost{Cost: 2, IORatio: 3}
	b := Cost{Cost: 5, IORatio: 2}

	got := Chain(a, b)

	require.Equal(t, 2+3*5.0, got.Cost)
	require.Equal(t, 6.0, got.IORatio)
}

func TestChainWithInfinityIsInfinite(t *testing.T) {
	got := Chain(Infinity, Cost{Cost: 1, IORatio: 1})
	assert.True(t, got.IsInfinite())
}

func TestJoinClampsIORatioByKeySize(t *testing.T) {
	a := Cost{Cost: 4, IORatio: 10}
	b := Cost{Cost: 6, IORatio: 10}

	got := Join(a, b, 1000)

	assert.Equal(t, 10.0, got.Cost)
	assert.Equal(t, 1.0, got.IORatio, "clamped to 1 when key cardinality dominates fan-out")
}

func TestJoinNeverUndercutsUnitFanOut(t *testing.T) {
	got := Join(Cost{Cost: 1, IORatio: 2}, Cost{Cost: 1, IORatio: 2}, 1)
	assert.Equal(t, 4.0, got.IORatio)
}

func TestCombineParallelSumsWork(t *testing.T) {
	got := CombineParallel(Cost{Cost: 3, IORatio: 1}, Cost{Cost: 4, IORatio: 2})
	assert.Equal(t, 7.0, got.Cost)
	assert.Equal(t, 3.0, got.IORatio)
}

func TestHeuristicCompletionSingleRemainingIsNoop(t *testing.T) {
	got := HeuristicCompletion(1, 5)
	assert.Equal(t, NOOP, got)

	got = HeuristicCompletion(0, 5)
	assert.Equal(t, NOOP, got)
}

func TestHeuristicCompletionDecaysWithProducedVars(t *testing.T) {
	low := HeuristicCompletion(4, 0)
	high := HeuristicCompletion(4, 4)

	assert.True(t, high.Cost < low.Cost, "more produced vars should lower completion cost estimate")
	assert.InDelta(t, AverageStepCost*4*math.Pow(0.95, 4), high.Cost, 1e-9)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "canonical", Canonical.String())
	assert.Equal(t, "reverse", Reverse.String())
}
