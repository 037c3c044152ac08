// Package cluster groups point features into aggregate cluster features by
// screen-space proximity.
//
// A Source wraps a base feature store and re-derives its clusters whenever
// the viewing resolution changes, the base store reports a change, or a
// clustering parameter is set. Clustering is a single greedy pass: results
// depend on the base store's iteration order and on the box-shaped (not
// circular) proximity test; see the engine for the exact semantics.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// Store is the contract a base feature store fulfills for clustering.
// *source.Vector satisfies it.
type Store interface {
	// LoadFeatures ensures upstream data for the given view is available.
	// Completion may also be signaled through change notifications.
	LoadFeatures(ctx context.Context, extent geom.Extent, resolution float64) error

	// GetFeatures returns the full current snapshot in iteration order.
	GetFeatures() []*feature.Feature

	// GetFeaturesInExtent returns at least every feature whose geometry
	// extent intersects the given extent. False positives are acceptable;
	// false negatives are a contract violation.
	GetFeaturesInExtent(extent geom.Extent) []*feature.Feature

	// OnChange subscribes to change notifications and returns an
	// unsubscribe function.
	OnChange(fn func()) (unsubscribe func())
}

// Source exposes cluster features derived from a base store.
//
// The exposed cluster slice is replaced wholesale on every recomputation and
// never mutated in place: a caller holding a previous slice holds a snapshot.
type Source struct {
	mu    sync.Mutex
	store Store

	distance  float64
	groupKey  string
	indexKey  string
	extractor GeometryExtractor

	resolution float64
	resolved   bool
	clusters   []*feature.Feature

	listeners    map[int]func()
	nextListener int
	unsubscribe  func()

	logger  *Logger
	metrics MetricsCollector
}

// New creates a cluster source wrapping the given base store.
//
// The source subscribes to the store's change notifications immediately;
// every notification triggers a full Refresh.
func New(store Store, optFns ...Option) (*Source, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	opts := applyOptions(optFns)
	if opts.distance < 0 {
		return nil, &ErrInvalidDistance{Distance: opts.distance}
	}

	s := &Source{
		store:     store,
		distance:  opts.distance,
		groupKey:  opts.groupKey,
		indexKey:  opts.indexKey,
		extractor: opts.extractor,
		clusters:  []*feature.Feature{},
		listeners: make(map[int]func()),
		logger:    opts.logger,
		metrics:   opts.metrics,
	}
	s.unsubscribe = store.OnChange(s.Refresh)
	return s, nil
}

// Close unsubscribes from the base store. The source remains queryable but
// will no longer react to base-store changes.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

// LoadFeatures forwards the load request to the base store and re-clusters
// if the resolution changed since the last pass.
//
// The forward happens unconditionally, so upstream data availability never
// depends on clustering state. If the resolution is unchanged the previously
// exposed clusters stay valid as-is; staleness against silent base-store
// mutation is covered by the store's change notifications, not by polling.
func (s *Source) LoadFeatures(ctx context.Context, extent geom.Extent, resolution float64) error {
	start := time.Now()
	err := s.store.LoadFeatures(ctx, extent, resolution)
	s.metrics.RecordLoad(time.Since(start), err)
	s.logger.LogLoad(ctx, resolution, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.resolved && s.resolution == resolution {
		s.mu.Unlock()
		return nil
	}
	func() {
		defer s.mu.Unlock()
		s.clusters = []*feature.Feature{}
		s.resolution = resolution
		s.resolved = true
		s.reclusterLocked()
	}()

	s.changed()
	return nil
}

// Refresh discards the exposed clusters and recomputes them at the current
// resolution, regardless of whether the resolution changed. It is also the
// handler invoked on every base-store change notification.
func (s *Source) Refresh() {
	start := time.Now()

	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.clusters = []*feature.Feature{}
		s.reclusterLocked()
	}()

	s.metrics.RecordRefresh(time.Since(start))
	s.logger.LogRefresh()
	s.changed()
}

// reclusterLocked runs a clustering pass if a resolution has been recorded.
// Without one the source stays in its idle state and exposes zero clusters.
func (s *Source) reclusterLocked() {
	if !s.resolved {
		return
	}

	start := time.Now()
	clusters := s.clusterPass()
	s.clusters = clusters

	featureCount := len(s.store.GetFeatures())
	s.metrics.RecordClusterPass(featureCount, len(clusters), time.Since(start))
	s.logger.LogClusterPass(s.resolution, featureCount, len(clusters))
}

// GetFeatures returns the currently exposed cluster features. The same slice
// is returned until the next recomputation replaces it.
func (s *Source) GetFeatures() []*feature.Feature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clusters
}

// Resolution returns the resolution of the last clustering pass and whether
// one has been recorded yet.
func (s *Source) Resolution() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution, s.resolved
}

// Distance returns the clustering distance threshold in pixels.
func (s *Source) Distance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distance
}

// SetDistance sets the distance threshold in pixels and forces a full
// recomputation, even if the resolution is unchanged.
func (s *Source) SetDistance(distance float64) {
	s.mu.Lock()
	s.distance = distance
	s.mu.Unlock()
	s.Refresh()
}

// GroupKey returns the attribute name used for equality partitioning.
func (s *Source) GroupKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupKey
}

// SetGroupKey sets the partition attribute name and forces recomputation.
func (s *Source) SetGroupKey(key string) {
	s.mu.Lock()
	s.groupKey = key
	s.mu.Unlock()
	s.Refresh()
}

// IndexKey returns the attribute name collected into cluster identifiers.
func (s *Source) IndexKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexKey
}

// SetIndexKey sets the identifier attribute name and forces recomputation.
func (s *Source) SetIndexKey(key string) {
	s.mu.Lock()
	s.indexKey = key
	s.mu.Unlock()
	s.Refresh()
}

// Store returns the wrapped base store.
func (s *Source) Store() Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// SetStore replaces the wrapped base store and forces a full recomputation:
// the source unsubscribes from the old store, subscribes Refresh to the new
// one and rebuilds its clusters from the new store's features. A nil store is
// ignored.
func (s *Source) SetStore(store Store) {
	if store == nil {
		return
	}

	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.store = store
	s.unsubscribe = store.OnChange(s.Refresh)
	s.mu.Unlock()

	s.Refresh()
}

// OnChange subscribes to recomputation notifications on the cluster source
// itself, so consumers can re-render when the exposed set is replaced.
func (s *Source) OnChange(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// changed fires the source's own listeners. Called without holding mu.
func (s *Source) changed() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
