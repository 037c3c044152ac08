// Package geojson reads and writes GeoJSON feature collections for the
// feature model.
//
// Decoding accepts point features and, by default, silently skips features
// with other geometry types so real-world mixed collections load cleanly.
// Encoding understands cluster features (features carrying the cluster
// attribute set) and serializes them with cluster-summary properties instead
// of the raw member list.
package geojson

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/greentheorystudio/openlayers/cluster"
	"github.com/greentheorystudio/openlayers/codec"
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// Common errors returned by this package.
var (
	// ErrInvalidDocument indicates the input is not a GeoJSON Feature or
	// FeatureCollection.
	ErrInvalidDocument = errors.New("geojson: invalid document")

	// ErrUnsupportedGeometry indicates a geometry type this package cannot
	// represent.
	ErrUnsupportedGeometry = errors.New("geojson: unsupported geometry type")
)

// Features decoded in parallel beyond this count.
const parallelThreshold = 1024

type options struct {
	codec  codec.Codec
	strict bool
}

// Option configures encoding and decoding.
type Option func(*options)

// WithCodec sets the JSON codec. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithStrict makes decoding fail on non-point geometries instead of
// skipping them.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

func applyOptions(optFns []Option) options {
	o := options{codec: codec.Default}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type rawGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type rawFeature struct {
	Type       string         `json:"type"`
	Geometry   *rawGeometry   `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// Decode parses a GeoJSON Feature or FeatureCollection document into
// features. Input order is preserved.
func Decode(data []byte, optFns ...Option) ([]*feature.Feature, error) {
	opts := applyOptions(optFns)

	var col rawCollection
	if err := opts.codec.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	switch col.Type {
	case "FeatureCollection":
		// Features already populated.
	case "Feature":
		var single rawFeature
		if err := opts.codec.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		col.Features = []rawFeature{single}
	default:
		return nil, fmt.Errorf("%w: type %q", ErrInvalidDocument, col.Type)
	}

	out := make([]*feature.Feature, len(col.Features))

	convert := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			f, err := convertFeature(col.Features[i], opts.strict)
			if err != nil {
				return err
			}
			out[i] = f // nil when skipped
		}
		return nil
	}

	if len(col.Features) < parallelThreshold {
		if err := convert(0, len(col.Features)); err != nil {
			return nil, err
		}
	} else {
		var g errgroup.Group
		workers := runtime.NumCPU()
		chunk := (len(col.Features) + workers - 1) / workers
		for lo := 0; lo < len(col.Features); lo += chunk {
			hi := min(lo+chunk, len(col.Features))
			g.Go(func() error { return convert(lo, hi) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	// Compact skipped entries, preserving order.
	features := make([]*feature.Feature, 0, len(out))
	for _, f := range out {
		if f != nil {
			features = append(features, f)
		}
	}
	return features, nil
}

func convertFeature(rf rawFeature, strict bool) (*feature.Feature, error) {
	if rf.Geometry == nil || rf.Geometry.Type != geom.TypePoint {
		if strict {
			got := "null"
			if rf.Geometry != nil {
				got = rf.Geometry.Type
			}
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, got)
		}
		return nil, nil
	}
	if len(rf.Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("%w: point with %d coordinates", ErrInvalidDocument, len(rf.Geometry.Coordinates))
	}

	attrs := make(feature.Attributes, len(rf.Properties))
	for k, v := range rf.Properties {
		if val, ok := convertProperty(v); ok {
			attrs[k] = val
		}
	}

	p := geom.NewPoint(rf.Geometry.Coordinates[0], rf.Geometry.Coordinates[1])
	return feature.NewWithAttributes(p, attrs), nil
}

// convertProperty maps a decoded JSON value to an attribute Value.
// Nested objects have no Value representation and are dropped.
func convertProperty(v any) (feature.Value, bool) {
	switch t := v.(type) {
	case nil:
		return feature.Null(), true
	case float64:
		return feature.Number(t), true
	case string:
		return feature.String(t), true
	case bool:
		return feature.Bool(t), true
	case []any:
		a := make([]feature.Value, 0, len(t))
		for _, e := range t {
			ev, ok := convertProperty(e)
			if !ok {
				return feature.Value{}, false
			}
			a = append(a, ev)
		}
		return feature.Array(a), true
	default:
		return feature.Value{}, false
	}
}

// Encode serializes features as a GeoJSON FeatureCollection.
//
// A feature carrying the cluster attribute set is emitted with summary
// properties (cluster, point_count, groupkey, identifiers) rather than its
// member features. NaN identifiers encode as null, since JSON has no NaN.
func Encode(features []*feature.Feature, optFns ...Option) ([]byte, error) {
	opts := applyOptions(optFns)

	col := rawCollection{
		Type:     "FeatureCollection",
		Features: make([]rawFeature, 0, len(features)),
	}

	for _, f := range features {
		rf, err := encodeFeature(f)
		if err != nil {
			return nil, err
		}
		col.Features = append(col.Features, rf)
	}

	return opts.codec.Marshal(col)
}

func encodeFeature(f *feature.Feature) (rawFeature, error) {
	g := f.Geometry()
	p, ok := g.(geom.Point)
	if !ok {
		got := "nil"
		if g != nil {
			got = g.Type()
		}
		return rawFeature{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, got)
	}

	rf := rawFeature{
		Type: "Feature",
		Geometry: &rawGeometry{
			Type:        geom.TypePoint,
			Coordinates: []float64{p.X, p.Y},
		},
	}

	if members, ok := f.Get(cluster.AttributeFeatures).AsFeatures(); ok {
		rf.Properties = clusterProperties(f, members)
		return rf, nil
	}

	props := make(map[string]any, len(f.Attributes()))
	for k, v := range f.Attributes() {
		if pv, ok := encodeValue(v); ok {
			props[k] = pv
		}
	}
	if len(props) > 0 {
		rf.Properties = props
	}
	return rf, nil
}

func clusterProperties(f *feature.Feature, members []*feature.Feature) map[string]any {
	props := map[string]any{
		"cluster":     true,
		"point_count": len(members),
	}
	if gk, ok := encodeValue(f.Get(cluster.AttributeGroupKey)); ok {
		props["groupkey"] = gk
	}
	if ids, ok := f.Get(cluster.AttributeIdentifiers).AsArray(); ok {
		encoded := make([]any, len(ids))
		for i, id := range ids {
			if v, ok := id.AsFloat64(); ok && !math.IsNaN(v) {
				encoded[i] = v
			} else {
				encoded[i] = nil
			}
		}
		props["identifiers"] = encoded
	}
	return props
}

// encodeValue maps an attribute Value to a JSON-encodable value.
// Feature lists are not encodable here; they are handled by the cluster
// property path.
func encodeValue(v feature.Value) (any, bool) {
	switch v.Kind {
	case feature.KindNull:
		return nil, true
	case feature.KindNumber:
		if math.IsNaN(v.F64) || math.IsInf(v.F64, 0) {
			return nil, true
		}
		return v.F64, true
	case feature.KindString:
		return v.S, true
	case feature.KindBool:
		return v.B, true
	case feature.KindArray:
		a := make([]any, 0, len(v.A))
		for _, e := range v.A {
			ev, ok := encodeValue(e)
			if !ok {
				return nil, false
			}
			a = append(a, ev)
		}
		return a, true
	default:
		return nil, false
	}
}
