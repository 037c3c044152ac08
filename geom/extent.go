package geom

import "math"

// Extent is an axis-aligned bounding box.
//
// An extent is treated as a value: operations that grow or move an extent
// return the result rather than mutating shared state, so callers can reuse
// extents across queries without defensive copies.
type Extent struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewExtent creates an extent from its four edges.
func NewExtent(minX, minY, maxX, maxY float64) Extent {
	return Extent{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// EmptyExtent returns the identity element for Extend: an inverted extent
// that any point or extent will replace.
func EmptyExtent() Extent {
	return Extent{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// InfiniteExtent returns an extent covering the whole plane.
func InfiniteExtent() Extent {
	return Extent{
		MinX: math.Inf(-1),
		MinY: math.Inf(-1),
		MaxX: math.Inf(1),
		MaxY: math.Inf(1),
	}
}

// IsEmpty reports whether the extent covers no area and no point.
func (e Extent) IsEmpty() bool {
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// Extend returns the extent grown to include p.
func (e Extent) Extend(p Point) Extent {
	return Extent{
		MinX: math.Min(e.MinX, p.X),
		MinY: math.Min(e.MinY, p.Y),
		MaxX: math.Max(e.MaxX, p.X),
		MaxY: math.Max(e.MaxY, p.Y),
	}
}

// ExtendExtent returns the union of e and other.
func (e Extent) ExtendExtent(other Extent) Extent {
	if other.IsEmpty() {
		return e
	}
	if e.IsEmpty() {
		return other
	}
	return Extent{
		MinX: math.Min(e.MinX, other.MinX),
		MinY: math.Min(e.MinY, other.MinY),
		MaxX: math.Max(e.MaxX, other.MaxX),
		MaxY: math.Max(e.MaxY, other.MaxY),
	}
}

// Buffer returns the extent expanded uniformly by d in all directions.
//
// The result is a square search box when applied to a point extent; the
// cluster engine relies on this box (not a circle) as its proximity test.
func (e Extent) Buffer(d float64) Extent {
	return Extent{
		MinX: e.MinX - d,
		MinY: e.MinY - d,
		MaxX: e.MaxX + d,
		MaxY: e.MaxY + d,
	}
}

// Intersects reports whether the two extents share at least one point.
// Touching edges count as intersecting.
func (e Extent) Intersects(other Extent) bool {
	return e.MinX <= other.MaxX &&
		e.MaxX >= other.MinX &&
		e.MinY <= other.MaxY &&
		e.MaxY >= other.MinY
}

// Contains reports whether p lies inside the extent, edges included.
func (e Extent) Contains(p Point) bool {
	return p.X >= e.MinX && p.X <= e.MaxX && p.Y >= e.MinY && p.Y <= e.MaxY
}

// Width returns the horizontal span of the extent.
func (e Extent) Width() float64 { return e.MaxX - e.MinX }

// Height returns the vertical span of the extent.
func (e Extent) Height() float64 { return e.MaxY - e.MinY }
