package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareNumericCrossKind(t *testing.T) {
	assert.Equal(t, 0, Compare(int64(10), 10.0))
	assert.Equal(t, -1, Compare(int64(9), 10.0))
	assert.Equal(t, 1, Compare(11.0, int64(10)))
}

func TestCompareNilOrdersFirst(t *testing.T) {
	assert.Equal(t, -1, Compare(nil, int64(1)))
	assert.Equal(t, 1, Compare(int64(1), nil))
	assert.Equal(t, 0, Compare(nil, nil))
}

func TestCompareStrings(t *testing.T) {
	assert.Equal(t, -1, Compare("alice", "bob"))
	assert.True(t, Equal(String("x"), "x"))
}

func TestCompareMismatchedNonNumericKindsIsTotalNotCrash(t *testing.T) {
	// Scenario 6: a disjunction branch may bind a variable to a string in
	// one branch and a bool in another; ordering must still be total.
	assert.NotPanics(t, func() {
		Compare("alice", true)
	})
}
