package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AttributeType is the primitive type assigned to a covariate value. Types
// are inferred per column, so every attribute in a column shares one type.
type AttributeType string

const (
	IntegerAttribute AttributeType = "Integer"
	FloatAttribute   AttributeType = "Float"
	StringAttribute  AttributeType = "String"
)

// Attribute is one typed scalar attached to an element for a single
// covariate. Value is nil when the originating cell was missing.
type Attribute struct {
	Type  AttributeType `json:"attribute_type"`
	Value interface{}   `json:"value"`
}

// NewAttribute builds an attribute of the given type from the raw cell text.
// The type comes from the column's inferred dtype, not from the cell itself,
// so a cell that does not parse as its column type degrades to a string
// rather than failing.
func NewAttribute(attrType AttributeType, raw string, missing bool) Attribute {
	if missing {
		return Attribute{Type: attrType, Value: nil}
	}

	switch attrType {
	case IntegerAttribute:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Attribute{Type: IntegerAttribute, Value: v}
		}
	case FloatAttribute:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return Attribute{Type: FloatAttribute, Value: v}
		}
	}

	return Attribute{Type: attrType, Value: raw}
}

func (a *Attribute) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type  AttributeType   `json:"attribute_type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	a.Type = wire.Type
	a.Value = nil
	if len(wire.Value) == 0 || string(wire.Value) == "null" {
		return nil
	}

	// json decodes every number as float64; integer attributes are coerced
	// back to int64 so values compare equal across a marshal round trip. A
	// numeric attribute may hold raw cell text that never parsed as its
	// column type, so a string value is accepted as the degraded form.
	switch wire.Type {
	case IntegerAttribute:
		var v int64
		if err := json.Unmarshal(wire.Value, &v); err == nil {
			a.Value = v
			return nil
		}
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return fmt.Errorf("integer attribute holds non-integer value: %w", err)
		}
		a.Value = s
	case FloatAttribute:
		var v float64
		if err := json.Unmarshal(wire.Value, &v); err == nil {
			a.Value = v
			return nil
		}
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return fmt.Errorf("float attribute holds non-numeric value: %w", err)
		}
		a.Value = s
	default:
		var v string
		if err := json.Unmarshal(wire.Value, &v); err != nil {
			return fmt.Errorf("string attribute holds non-string value: %w", err)
		}
		a.Value = v
	}

	return nil
}

// Equals compares type and value.
func (a Attribute) Equals(other Attribute) bool {
	return a.Type == other.Type && a.Value == other.Value
}
