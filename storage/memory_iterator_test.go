package storage

import (
	"testing"

	"github.com/patternql/querycore/ids"
	"github.com/stretchr/testify/require"
)

const sortVar = ids.VariableVertexId(0)
const otherVar = ids.VariableVertexId(1)

func rows(sorts ...int64) []Row {
	out := make([]Row, len(sorts))
	for i, s := range sorts {
		out[i] = Row{sortVar: s, otherVar: s * 10}
	}
	return out
}

func TestMemoryIteratorPeekAndAdvance(t *testing.T) {
	it := NewMemoryIterator(sortVar, rows(3, 1, 2))

	v, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	require.NoError(t, it.AdvanceSingle())
	v, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, int64(2), v)

	require.NoError(t, it.AdvanceSingle())
	require.NoError(t, it.AdvanceSingle())
	_, ok = it.Peek()
	require.False(t, ok)
}

func TestMemoryIteratorAdvanceUntilFirstUnboundIs(t *testing.T) {
	it := NewMemoryIterator(sortVar, rows(1, 3, 5, 7))

	ord, err := it.AdvanceUntilFirstUnboundIs(int64(4))
	require.NoError(t, err)
	require.Equal(t, Greater, ord)
	v, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, int64(5), v)

	ord, err = it.AdvanceUntilFirstUnboundIs(int64(5))
	require.NoError(t, err)
	require.Equal(t, Equal, ord)

	ord, err = it.AdvanceUntilFirstUnboundIs(int64(100))
	require.NoError(t, err)
	require.Equal(t, Greater, ord)
	_, ok = it.Peek()
	require.False(t, ok)
}

func TestMemoryIteratorAdvancePastCountsDuplicates(t *testing.T) {
	it := NewMemoryIterator(sortVar, rows(1, 1, 1, 2))

	n, err := it.AdvancePast()
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	v, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, int64(2), v)
}

func TestMemoryIteratorAdvancePastLeavesDistinctTuplesAtSameKey(t *testing.T) {
	it := NewMemoryIterator(sortVar, []Row{
		{sortVar: int64(1), otherVar: "x"},
		{sortVar: int64(1), otherVar: "x"},
		{sortVar: int64(1), otherVar: "y"},
		{sortVar: int64(2), otherVar: "z"},
	})

	n, err := it.AdvancePast()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	// still at key 1: the distinct ("y") tuple was not consumed
	v, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	dst := Row{}
	require.NoError(t, it.WriteValues(dst))
	require.Equal(t, "y", dst[otherVar])
}

func TestMemoryIteratorWriteValuesMergesIntoDst(t *testing.T) {
	it := NewMemoryIterator(sortVar, rows(5))
	dst := Row{ids.VariableVertexId(9): "carried-over"}

	require.NoError(t, it.WriteValues(dst))
	require.Equal(t, int64(5), dst[sortVar])
	require.Equal(t, int64(50), dst[otherVar])
	require.Equal(t, "carried-over", dst[ids.VariableVertexId(9)])
}

func TestMemoryIteratorWriteValuesOnExhaustedReturnsError(t *testing.T) {
	it := NewMemoryIterator(sortVar, rows())
	err := it.WriteValues(Row{})
	require.Error(t, err)
}
