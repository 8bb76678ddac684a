package metadata

import (
	"errors"
	"fmt"
)

var ErrDuplicateElement = errors.New("duplicate element identifier in set")

// Element is a named entity, either an observation (sample) or a feature
// (measured variable), carrying a mapping from covariate name to a typed
// attribute. Identity is the Id string alone.
type Element struct {
	Id         string               `json:"id"`
	Attributes map[string]Attribute `json:"attributes,omitempty"`
}

func NewElement(id string) Element {
	return Element{Id: id}
}

func (e Element) equals(other Element) bool {
	if e.Id != other.Id || len(e.Attributes) != len(other.Attributes) {
		return false
	}
	for key, attr := range e.Attributes {
		otherAttr, ok := other.Attributes[key]
		if !ok || !attr.Equals(otherAttr) {
			return false
		}
	}
	return true
}

// elementSet is an ordered collection of elements with unique identifiers.
// The uniqueness invariant mirrors the table's own row label invariant.
type elementSet struct {
	Elements []Element `json:"elements"`
}

func newElementSet(elements []Element) (elementSet, error) {
	seen := make(map[string]struct{}, len(elements))
	for _, e := range elements {
		if _, ok := seen[e.Id]; ok {
			return elementSet{}, fmt.Errorf("%w: %v", ErrDuplicateElement, e.Id)
		}
		seen[e.Id] = struct{}{}
	}
	return elementSet{Elements: elements}, nil
}

// contentEquals compares two sets by order, identifiers, and attributes, not
// by record identity.
func (s elementSet) contentEquals(other elementSet) bool {
	if len(s.Elements) != len(other.Elements) {
		return false
	}
	for i, e := range s.Elements {
		if !e.equals(other.Elements[i]) {
			return false
		}
	}
	return true
}

// ObservationSet is the ordered set of samples described by a resource.
type ObservationSet struct {
	elementSet
}

func NewObservationSet(elements []Element) (ObservationSet, error) {
	set, err := newElementSet(elements)
	if err != nil {
		return ObservationSet{}, err
	}
	return ObservationSet{set}, nil
}

func (s ObservationSet) ContentEquals(other ObservationSet) bool {
	return s.contentEquals(other.elementSet)
}

// FeatureSet is the ordered set of measured variables described by a resource.
type FeatureSet struct {
	elementSet
}

func NewFeatureSet(elements []Element) (FeatureSet, error) {
	set, err := newElementSet(elements)
	if err != nil {
		return FeatureSet{}, err
	}
	return FeatureSet{set}, nil
}

func (s FeatureSet) ContentEquals(other FeatureSet) bool {
	return s.contentEquals(other.elementSet)
}
