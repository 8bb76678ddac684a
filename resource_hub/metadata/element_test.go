package metadata

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAttribute(t *testing.T) {
	assert.Equal(t, Attribute{Type: IntegerAttribute, Value: int64(42)}, NewAttribute(IntegerAttribute, "42", false))
	assert.Equal(t, Attribute{Type: FloatAttribute, Value: 2.5}, NewAttribute(FloatAttribute, "2.5", false))
	assert.Equal(t, Attribute{Type: StringAttribute, Value: "CTRL"}, NewAttribute(StringAttribute, "CTRL", false))

	// a missing cell yields a typed attribute with no value
	assert.Equal(t, Attribute{Type: FloatAttribute, Value: nil}, NewAttribute(FloatAttribute, "NA", true))

	// a cell that cannot parse as the column type degrades to its raw text
	assert.Equal(t, Attribute{Type: IntegerAttribute, Value: "x1"}, NewAttribute(IntegerAttribute, "x1", false))
}

func TestAttributeJsonRoundTrip(t *testing.T) {
	attrs := []Attribute{
		NewAttribute(IntegerAttribute, "7", false),
		NewAttribute(FloatAttribute, "1.25", false),
		NewAttribute(StringAttribute, "TRTD", false),
		NewAttribute(IntegerAttribute, "", true),
		// degraded numeric attributes carry their raw text through the round
		// trip
		NewAttribute(IntegerAttribute, "x1", false),
		NewAttribute(FloatAttribute, "n/d", false),
	}

	for _, attr := range attrs {
		serialized, err := json.Marshal(attr)
		require.NoError(t, err)

		var parsed Attribute
		require.NoError(t, json.Unmarshal(serialized, &parsed))

		assert.True(t, attr.Equals(parsed), "attribute %+v changed across round trip: %+v", attr, parsed)
	}
}

func TestObservationSetUniqueness(t *testing.T) {
	_, err := NewObservationSet([]Element{NewElement("s1"), NewElement("s2"), NewElement("s1")})
	assert.True(t, errors.Is(err, ErrDuplicateElement))

	set, err := NewObservationSet([]Element{NewElement("s1"), NewElement("s2")})
	require.NoError(t, err)
	assert.Len(t, set.Elements, 2)
}

func TestContentEquals(t *testing.T) {
	build := func() ObservationSet {
		set, err := NewObservationSet([]Element{
			{Id: "s1", Attributes: map[string]Attribute{"group": NewAttribute(StringAttribute, "CTRL", false)}},
			{Id: "s2", Attributes: map[string]Attribute{"group": NewAttribute(StringAttribute, "TRTD", false)}},
		})
		require.NoError(t, err)
		return set
	}

	a, b := build(), build()
	assert.True(t, a.ContentEquals(b))

	b.Elements[1].Attributes["group"] = NewAttribute(StringAttribute, "CTRL", false)
	assert.False(t, a.ContentEquals(b))

	shorter, err := NewObservationSet(a.Elements[:1])
	require.NoError(t, err)
	assert.False(t, a.ContentEquals(shorter))
}

func TestSetJsonRoundTrip(t *testing.T) {
	set, err := NewFeatureSet([]Element{
		{Id: "gA", Attributes: map[string]Attribute{
			"padj":   NewAttribute(FloatAttribute, "0.01", false),
			"counts": NewAttribute(IntegerAttribute, "100", false),
		}},
		{Id: "gB", Attributes: map[string]Attribute{
			"padj":   NewAttribute(FloatAttribute, "NA", true),
			"counts": NewAttribute(IntegerAttribute, "7", false),
		}},
	})
	require.NoError(t, err)

	serialized, err := json.Marshal(set)
	require.NoError(t, err)

	var parsed FeatureSet
	require.NoError(t, json.Unmarshal(serialized, &parsed))

	assert.True(t, set.ContentEquals(parsed))
}
