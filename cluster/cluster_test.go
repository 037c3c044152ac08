package cluster_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentheorystudio/openlayers/cluster"
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
	"github.com/greentheorystudio/openlayers/source"
)

func TestNewValidation(t *testing.T) {
	t.Run("NilStore", func(t *testing.T) {
		_, err := cluster.New(nil)
		assert.ErrorIs(t, err, cluster.ErrNilStore)
	})

	t.Run("NegativeDistance", func(t *testing.T) {
		_, err := cluster.New(source.NewVector(), cluster.WithDistance(-1))

		var invalid *cluster.ErrInvalidDistance
		require.ErrorAs(t, err, &invalid)
		assert.InDelta(t, -1, invalid.Distance, 0)
	})

	t.Run("Defaults", func(t *testing.T) {
		s := newClustered(t, source.NewVector())
		assert.InDelta(t, cluster.DefaultDistance, s.Distance(), 0)
		assert.Empty(t, s.GroupKey())
		assert.Empty(t, s.IndexKey())
	})
}

func TestIdleStateExposesNoClusters(t *testing.T) {
	store := source.NewVector(source.WithFeatures(pointFeature(0, 0)))
	s := newClustered(t, store)

	// No load yet: no resolution, no clusters, even though the base store
	// has features and change notifications fire.
	_, resolved := s.Resolution()
	assert.False(t, resolved)
	assert.Empty(t, s.GetFeatures())

	store.AddFeature(pointFeature(1, 1))
	assert.Empty(t, s.GetFeatures())
}

func TestResolutionGating(t *testing.T) {
	store := source.NewVector(source.WithFeatures(pointFeature(0, 0), pointFeature(5, 0)))
	s := newClustered(t, store, cluster.WithDistance(10))

	first := load(t, s, 1)
	require.Len(t, first, 1)

	t.Run("UnchangedResolutionKeepsSlice", func(t *testing.T) {
		again := load(t, s, 1)
		assert.Same(t, first[0], again[0], "same backing slice expected")
	})

	t.Run("ChangedResolutionRecomputes", func(t *testing.T) {
		other := load(t, s, 2)
		require.Len(t, other, 1)
		assert.NotSame(t, first[0], other[0], "new backing slice expected")

		res, resolved := s.Resolution()
		require.True(t, resolved)
		assert.InDelta(t, 2, res, 0)
	})
}

func TestRefreshRecomputesUnconditionally(t *testing.T) {
	store := source.NewVector(source.WithFeatures(pointFeature(0, 0)))
	s := newClustered(t, store)

	first := load(t, s, 1)
	require.Len(t, first, 1)

	s.Refresh()
	second := s.GetFeatures()
	require.Len(t, second, 1)
	assert.NotSame(t, first[0], second[0], "clusters are rebuilt, not reused")
}

func TestSettersForceRecompute(t *testing.T) {
	a := pointFeature(0, 0)
	b := pointFeature(15, 0)
	store := source.NewVector(source.WithFeatures(a, b))
	s := newClustered(t, store, cluster.WithDistance(10))

	require.Len(t, load(t, s, 1), 2)

	t.Run("SetDistance", func(t *testing.T) {
		s.SetDistance(20)
		assert.Len(t, s.GetFeatures(), 1)
		assert.InDelta(t, 20, s.Distance(), 0)
	})

	t.Run("SetGroupKey", func(t *testing.T) {
		a.Set("type", feature.String("cafe"))
		s.SetGroupKey("type")
		assert.Len(t, s.GetFeatures(), 2)
		assert.Equal(t, "type", s.GroupKey())
	})

	t.Run("SetIndexKey", func(t *testing.T) {
		s.SetIndexKey("id")
		assert.Equal(t, "id", s.IndexKey())
		for _, cl := range s.GetFeatures() {
			ids, ok := cl.Get(cluster.AttributeIdentifiers).AsArray()
			require.True(t, ok)
			assert.Len(t, ids, len(members(t, cl)))
		}
	})
}

func TestBaseStoreChangeTriggersRefresh(t *testing.T) {
	store := source.NewVector(source.WithFeatures(pointFeature(0, 0)))
	s := newClustered(t, store, cluster.WithDistance(10))

	require.Len(t, load(t, s, 1), 1)

	var notified int
	unsubscribe := s.OnChange(func() { notified++ })
	defer unsubscribe()

	store.AddFeature(pointFeature(100, 0))
	assert.Len(t, s.GetFeatures(), 2)
	assert.Equal(t, 1, notified)

	t.Run("RemovalAlsoRefreshes", func(t *testing.T) {
		store.RemoveFeature(store.GetFeatures()[0])
		assert.Len(t, s.GetFeatures(), 1)
		assert.Equal(t, 2, notified)
	})

	t.Run("ClosedSourceStopsReacting", func(t *testing.T) {
		require.NoError(t, s.Close())
		store.AddFeature(pointFeature(200, 0))
		assert.Len(t, s.GetFeatures(), 1)
	})
}

func TestSetStoreSwapsBase(t *testing.T) {
	oldStore := source.NewVector(source.WithFeatures(pointFeature(0, 0)))
	newStore := source.NewVector(source.WithFeatures(pointFeature(100, 0), pointFeature(200, 0)))

	s := newClustered(t, oldStore, cluster.WithDistance(10))
	require.Len(t, load(t, s, 1), 1)

	s.SetStore(newStore)
	assert.Same(t, newStore, s.Store())

	clusters := s.GetFeatures()
	require.Len(t, clusters, 2, "clusters rebuilt from the new store")
	assert.Equal(t, geom.NewPoint(100, 0), clusters[0].Geometry())
	assert.Equal(t, geom.NewPoint(200, 0), clusters[1].Geometry())

	t.Run("NewStoreChangesTriggerRefresh", func(t *testing.T) {
		newStore.AddFeature(pointFeature(300, 0))
		assert.Len(t, s.GetFeatures(), 3)
	})

	t.Run("OldStoreChangesIgnored", func(t *testing.T) {
		oldStore.AddFeature(pointFeature(400, 0))
		assert.Len(t, s.GetFeatures(), 3)
	})

	t.Run("NilStoreIgnored", func(t *testing.T) {
		s.SetStore(nil)
		assert.Same(t, newStore, s.Store())
	})
}

func TestLoadErrorPropagates(t *testing.T) {
	store := source.NewVector(source.WithLoader(source.NewFileLoader("/does/not/exist.geojson")))
	s := newClustered(t, store)

	err := s.LoadFeatures(context.Background(), geom.InfiniteExtent(), 1)
	require.Error(t, err)

	// A failed load records no resolution.
	_, resolved := s.Resolution()
	assert.False(t, resolved)
}

func TestMetricsCollector(t *testing.T) {
	metrics := cluster.NewBasicMetricsCollector()
	store := source.NewVector(source.WithFeatures(pointFeature(0, 0), pointFeature(5, 0)))
	s := newClustered(t, store, cluster.WithDistance(10), cluster.WithMetricsCollector(metrics))

	load(t, s, 1)
	s.Refresh()

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.PassCount)
	assert.Equal(t, int64(1), stats.RefreshCount)
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Equal(t, int64(0), stats.LoadErrors)
	assert.Equal(t, int64(4), stats.PassFeatures)
	assert.Equal(t, int64(2), stats.PassClusters)

	t.Run("RefreshAverage", func(t *testing.T) {
		m := cluster.NewBasicMetricsCollector()
		m.RecordRefresh(4 * time.Millisecond)
		m.RecordRefresh(2 * time.Millisecond)

		stats := m.GetStats()
		assert.Equal(t, int64(2), stats.RefreshCount)
		assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), stats.RefreshAvgNanos)
	})
}
