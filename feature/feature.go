// Package feature provides the vector feature model: a geometry plus an open
// attribute bag of typed values.
//
// Features carry a process-unique numeric UID so sources and the cluster
// engine can track identity in bitmap sets without hashing whole features.
package feature

import (
	"sync/atomic"

	"github.com/greentheorystudio/openlayers/geom"
)

var uidCounter atomic.Uint32

// Feature is a geographic feature: an identity, a geometry and attributes.
//
// The UID is assigned at construction and never changes; it is what the
// cluster engine's deduplication set is keyed on, so it must stay stable for
// the lifetime of a clustering pass.
type Feature struct {
	uid        uint32
	geometry   geom.Geometry
	attributes Attributes
}

// New creates a feature with the given geometry and no attributes.
func New(g geom.Geometry) *Feature {
	return &Feature{
		uid:        uidCounter.Add(1),
		geometry:   g,
		attributes: make(Attributes),
	}
}

// NewWithAttributes creates a feature with the given geometry and attributes.
// The attribute map is used as-is, not copied.
func NewWithAttributes(g geom.Geometry, attrs Attributes) *Feature {
	if attrs == nil {
		attrs = make(Attributes)
	}
	return &Feature{
		uid:        uidCounter.Add(1),
		geometry:   g,
		attributes: attrs,
	}
}

// UID returns the process-unique identifier of the feature.
func (f *Feature) UID() uint32 { return f.uid }

// Geometry returns the feature's geometry. May be nil.
func (f *Feature) Geometry() geom.Geometry { return f.geometry }

// SetGeometry replaces the feature's geometry.
//
// Mutating the geometry of a feature that is currently held by a source
// invalidates the source's spatial index for that feature; remove and re-add
// it instead.
func (f *Feature) SetGeometry(g geom.Geometry) { f.geometry = g }

// Get reads an attribute. A missing attribute yields the absent Value.
func (f *Feature) Get(key string) Value {
	return f.attributes[key]
}

// Set writes an attribute.
func (f *Feature) Set(key string, v Value) {
	f.attributes[key] = v
}

// Unset removes an attribute.
func (f *Feature) Unset(key string) {
	delete(f.attributes, key)
}

// Attributes returns the live attribute map. Mutations through the map are
// visible to every holder of the feature; this shared-mutation visibility is
// intentional.
func (f *Feature) Attributes() Attributes { return f.attributes }
