// Package geom provides the minimal planar geometry model used by feature
// sources and the cluster engine: 2D points and axis-aligned extents.
//
// Coordinates are map units (the projection is handled upstream); the package
// deliberately has no notion of CRS or reprojection.
package geom

// TypePoint is the geometry type string for points.
const TypePoint = "Point"

// Geometry is the contract every geometry kind fulfills.
//
// The cluster engine only ever computes with points, but sources index any
// geometry by its extent.
type Geometry interface {
	// Type returns the geometry type string (e.g. "Point").
	Type() string

	// Extent returns the axis-aligned bounding box of the geometry.
	Extent() Extent
}

// Point is a 2D coordinate in map units.
type Point struct {
	X float64
	Y float64
}

// NewPoint creates a point at (x, y).
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Type implements Geometry.
func (p Point) Type() string { return TypePoint }

// Extent returns the degenerate extent covering only the point itself.
func (p Point) Extent() Extent {
	return Extent{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}
