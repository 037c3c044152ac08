// Package source provides the vector feature store: an ordered feature
// collection with a spatial index, change notification and pluggable
// loaders.
//
// The store is the "base" side of clustering: the cluster source consumes it
// through a narrow query contract (full snapshot, extent query, change
// subscription) and never reaches into its internals.
package source

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tidwall/rtree"

	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// Vector is an in-memory feature store.
//
// Features keep their insertion order: GetFeatures returns them in the order
// they were added, and that order is what makes greedy clustering
// reproducible for a given load sequence. Extent queries run against an
// R-tree and return candidates in index order, which is arbitrary but
// deterministic for an unchanged tree.
type Vector struct {
	mu           sync.RWMutex
	features     []*feature.Feature
	index        map[uint32]int // UID -> position in features
	tree         rtree.RTreeG[*feature.Feature]
	live         *roaring.Bitmap
	listeners    map[int]func()
	nextListener int

	loader Loader
	loaded bool

	wrapX bool
	world geom.Extent
}

type options struct {
	loader   Loader
	wrapX    bool
	world    geom.Extent
	features []*feature.Feature
}

// Option configures a Vector at construction.
type Option func(*options)

// WithLoader sets the loader invoked by LoadFeatures to fetch upstream data.
// The loader runs once; subsequent LoadFeatures calls are no-ops on the
// store side.
func WithLoader(l Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithWrapX enables horizontal world wrapping for extent queries: query
// extents hanging over the world's X edges also match features on the
// opposite side. world defines the wrapping period.
func WithWrapX(world geom.Extent) Option {
	return func(o *options) {
		o.wrapX = true
		o.world = world
	}
}

// WithFeatures seeds the store with initial features.
func WithFeatures(features ...*feature.Feature) Option {
	return func(o *options) {
		o.features = append(o.features, features...)
	}
}

// NewVector creates a feature store.
func NewVector(optFns ...Option) *Vector {
	opts := options{}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	v := &Vector{
		index:     make(map[uint32]int),
		live:      roaring.New(),
		listeners: make(map[int]func()),
		loader:    opts.loader,
		wrapX:     opts.wrapX,
		world:     opts.world,
	}
	for _, f := range opts.features {
		v.addLocked(f)
	}
	return v
}

// Len returns the number of features currently stored.
func (v *Vector) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.features)
}

// AddFeature adds a feature and fires change notifications.
// Adding a feature that is already present is a no-op.
func (v *Vector) AddFeature(f *feature.Feature) {
	v.mu.Lock()
	added := v.addLocked(f)
	v.mu.Unlock()

	if added {
		v.changed()
	}
}

// AddFeatures adds features in order and fires a single change notification.
func (v *Vector) AddFeatures(features []*feature.Feature) {
	added := false

	v.mu.Lock()
	for _, f := range features {
		if v.addLocked(f) {
			added = true
		}
	}
	v.mu.Unlock()

	if added {
		v.changed()
	}
}

func (v *Vector) addLocked(f *feature.Feature) bool {
	if f == nil {
		return false
	}
	if _, ok := v.index[f.UID()]; ok {
		return false
	}

	v.index[f.UID()] = len(v.features)
	v.features = append(v.features, f)
	v.live.Add(f.UID())
	if g := f.Geometry(); g != nil {
		e := g.Extent()
		v.tree.Insert([2]float64{e.MinX, e.MinY}, [2]float64{e.MaxX, e.MaxY}, f)
	}
	return true
}

// RemoveFeature removes a feature and fires change notifications.
// Removal indexes by the feature's current geometry extent, so geometries
// must not be mutated while the feature is stored.
func (v *Vector) RemoveFeature(f *feature.Feature) bool {
	if f == nil {
		return false
	}

	v.mu.Lock()
	pos, ok := v.index[f.UID()]
	if !ok {
		v.mu.Unlock()
		return false
	}

	v.features = append(v.features[:pos], v.features[pos+1:]...)
	for i := pos; i < len(v.features); i++ {
		v.index[v.features[i].UID()] = i
	}
	delete(v.index, f.UID())
	v.live.Remove(f.UID())
	if g := f.Geometry(); g != nil {
		e := g.Extent()
		v.tree.Delete([2]float64{e.MinX, e.MinY}, [2]float64{e.MaxX, e.MaxY}, f)
	}
	v.mu.Unlock()

	v.changed()
	return true
}

// Clear removes all features and fires change notifications.
func (v *Vector) Clear() {
	v.mu.Lock()
	v.features = nil
	v.index = make(map[uint32]int)
	v.live = roaring.New()
	v.tree = rtree.RTreeG[*feature.Feature]{}
	v.mu.Unlock()

	v.changed()
}

// GetFeatures returns a snapshot of all features in insertion order.
func (v *Vector) GetFeatures() []*feature.Feature {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]*feature.Feature, len(v.features))
	copy(out, v.features)
	return out
}

// GetFeatureByUID returns the stored feature with the given UID.
func (v *Vector) GetFeatureByUID(uid uint32) (*feature.Feature, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	pos, ok := v.index[uid]
	if !ok {
		return nil, false
	}
	return v.features[pos], true
}

// Has reports whether the feature is currently stored.
func (v *Vector) Has(f *feature.Feature) bool {
	if f == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.live.Contains(f.UID())
}

// ForEachFeature calls fn for every feature in insertion order until fn
// returns false.
func (v *Vector) ForEachFeature(fn func(f *feature.Feature) bool) {
	for _, f := range v.GetFeatures() {
		if !fn(f) {
			return
		}
	}
}

// GetFeaturesInExtent returns every feature whose geometry extent intersects
// the given extent. The result may contain false positives near index
// boundaries; callers filter.
func (v *Vector) GetFeaturesInExtent(extent geom.Extent) []*feature.Feature {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.wrapX {
		return v.searchLocked(extent)
	}

	// A query split into wrapped parts can match the same feature twice
	// near the seam; dedupe by UID.
	seen := roaring.New()
	var out []*feature.Feature
	for _, q := range wrapQueryExtents(extent, v.world) {
		v.tree.Search(
			[2]float64{q.MinX, q.MinY},
			[2]float64{q.MaxX, q.MaxY},
			func(_, _ [2]float64, f *feature.Feature) bool {
				if !seen.Contains(f.UID()) {
					seen.Add(f.UID())
					out = append(out, f)
				}
				return true
			},
		)
	}
	return out
}

func (v *Vector) searchLocked(extent geom.Extent) []*feature.Feature {
	var out []*feature.Feature
	v.tree.Search(
		[2]float64{extent.MinX, extent.MinY},
		[2]float64{extent.MaxX, extent.MaxY},
		func(_, _ [2]float64, f *feature.Feature) bool {
			out = append(out, f)
			return true
		},
	)
	return out
}

// wrapQueryExtents splits a query extent into parts inside the world,
// shifting overhanging spans to the opposite side.
func wrapQueryExtents(extent, world geom.Extent) []geom.Extent {
	width := world.Width()
	if width <= 0 || extent.Width() >= width {
		clamped := extent
		clamped.MinX = world.MinX
		clamped.MaxX = world.MaxX
		return []geom.Extent{clamped}
	}

	parts := make([]geom.Extent, 0, 3)

	main := extent
	if main.MinX < world.MinX {
		main.MinX = world.MinX
	}
	if main.MaxX > world.MaxX {
		main.MaxX = world.MaxX
	}
	parts = append(parts, main)

	if extent.MinX < world.MinX {
		parts = append(parts, geom.Extent{
			MinX: extent.MinX + width,
			MinY: extent.MinY,
			MaxX: world.MaxX,
			MaxY: extent.MaxY,
		})
	}
	if extent.MaxX > world.MaxX {
		parts = append(parts, geom.Extent{
			MinX: world.MinX,
			MinY: extent.MinY,
			MaxX: extent.MaxX - width,
			MaxY: extent.MaxY,
		})
	}
	return parts
}

// LoadFeatures runs the configured loader, if any, and adds its features.
// The loader runs at most once for the lifetime of the store; completion is
// observable through change notifications.
func (v *Vector) LoadFeatures(ctx context.Context, extent geom.Extent, resolution float64) error {
	v.mu.Lock()
	loader := v.loader
	done := v.loaded
	v.mu.Unlock()

	if loader == nil || done {
		return nil
	}

	features, err := loader(ctx, extent, resolution)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.loaded = true
	added := false
	for _, f := range features {
		if v.addLocked(f) {
			added = true
		}
	}
	v.mu.Unlock()

	if added {
		v.changed()
	}
	return nil
}

// OnChange subscribes to change notifications. Every mutation fires
// listeners synchronously after the store's lock is released, so listeners
// may query the store.
func (v *Vector) OnChange(fn func()) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextListener
	v.nextListener++
	v.listeners[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.listeners, id)
		v.mu.Unlock()
	}
}

func (v *Vector) changed() {
	v.mu.RLock()
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
