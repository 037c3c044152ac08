package cluster

import (
	"fmt"

	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// GeometryExtractor maps a feature to the single point used for clustering.
//
// Returning ok=false excludes the feature from clustering entirely; this is a
// legitimate, silent per-feature condition and only reachable through a
// custom extractor.
type GeometryExtractor func(f *feature.Feature) (p geom.Point, ok bool)

// DefaultGeometryExtractor requires the feature's geometry to already be a
// point. Any other geometry is a configuration error, not a data condition:
// a source of non-point features needs a custom extractor, so this panics
// instead of skipping.
func DefaultGeometryExtractor(f *feature.Feature) (geom.Point, bool) {
	g := f.Geometry()
	p, ok := g.(geom.Point)
	if !ok {
		got := "nil"
		if g != nil {
			got = g.Type()
		}
		panic(fmt.Sprintf(
			"cluster: default geometry extractor requires point geometries, got %s; configure WithGeometryExtractor for non-point sources", got))
	}
	return p, true
}
