package storage

import (
	"testing"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
	"github.com/stretchr/testify/require"
)

func TestEncodeValueRoundTrips(t *testing.T) {
	cases := []value.Value{nil, int64(42), int64(-7), 3.25, -3.25, "hello", true, false}
	for _, v := range cases {
		enc := EncodeValue(v)
		got, n, err := DecodeValue(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, 0, value.Compare(v, got))
	}
}

func TestEncodeValuePreservesLongOrder(t *testing.T) {
	lo := EncodeValue(int64(-100))
	hi := EncodeValue(int64(100))
	require.Less(t, string(lo), string(hi))
}

func TestEncodeValuePreservesDoubleOrder(t *testing.T) {
	lo := EncodeValue(-1.5)
	hi := EncodeValue(2.5)
	require.Less(t, string(lo), string(hi))
}

func TestEncodeValuePreservesStringOrder(t *testing.T) {
	lo := EncodeValue("alice")
	hi := EncodeValue("bob")
	require.Less(t, string(lo), string(hi))
}

func TestEncodeFactAndDecodeRowRoundTrip(t *testing.T) {
	sortVar := ids.VariableVertexId(1)
	row := Row{sortVar: int64(10), ids.VariableVertexId(2): "Alice"}

	_, val := EncodeFact([]byte("p:"), 0, sortVar, row)
	got, err := DecodeRow(val)
	require.NoError(t, err)
	require.Equal(t, row, got)
}
