package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryOracleDefaultsToOneWhenUnset(t *testing.T) {
	o := NewMemoryOracle()

	assert.EqualValues(t, 1, o.TypeCount("person"))
	assert.EqualValues(t, 1, o.RelationCardinality("membership"))
	assert.EqualValues(t, 1, o.AttributeOwnerCount("name"))
	assert.EqualValues(t, 1, o.AttributeValueCount("name"))
}

func TestMemoryOracleReturnsConfiguredValues(t *testing.T) {
	o := NewMemoryOracle().
		WithTypeCount("person", 42).
		WithRelationCardinality("membership", 7).
		WithAttributeOwners("name", 5).
		WithAttributeValues("name", 3)

	assert.EqualValues(t, 42, o.TypeCount("person"))
	assert.EqualValues(t, 7, o.RelationCardinality("membership"))
	assert.EqualValues(t, 5, o.AttributeOwnerCount("name"))
	assert.EqualValues(t, 3, o.AttributeValueCount("name"))
}
