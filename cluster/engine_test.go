package cluster_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greentheorystudio/openlayers/cluster"
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
	"github.com/greentheorystudio/openlayers/source"
)

func pointFeature(x, y float64) *feature.Feature {
	return feature.New(geom.NewPoint(x, y))
}

func newClustered(t *testing.T, store cluster.Store, optFns ...cluster.Option) *cluster.Source {
	t.Helper()
	s, err := cluster.New(store, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func load(t *testing.T, s *cluster.Source, resolution float64) []*feature.Feature {
	t.Helper()
	require.NoError(t, s.LoadFeatures(context.Background(), geom.InfiniteExtent(), resolution))
	return s.GetFeatures()
}

func centroid(t *testing.T, f *feature.Feature) geom.Point {
	t.Helper()
	p, ok := f.Geometry().(geom.Point)
	require.True(t, ok)
	return p
}

func members(t *testing.T, f *feature.Feature) []*feature.Feature {
	t.Helper()
	ms, ok := f.Get(cluster.AttributeFeatures).AsFeatures()
	require.True(t, ok)
	return ms
}

func TestClusterPassBasic(t *testing.T) {
	a := pointFeature(0, 0)
	b := pointFeature(5, 0)
	c := pointFeature(100, 0)
	store := source.NewVector(source.WithFeatures(a, b, c))

	s := newClustered(t, store, cluster.WithDistance(10))
	clusters := load(t, s, 1)

	require.Len(t, clusters, 2)
	assert.Equal(t, geom.NewPoint(2.5, 0), centroid(t, clusters[0]))
	assert.Equal(t, geom.NewPoint(100, 0), centroid(t, clusters[1]))

	assert.ElementsMatch(t, []*feature.Feature{a, b}, members(t, clusters[0]))
	assert.ElementsMatch(t, []*feature.Feature{c}, members(t, clusters[1]))
}

func TestClusterDistanceScalesWithResolution(t *testing.T) {
	a := pointFeature(0, 0)
	b := pointFeature(50, 0)
	store := source.NewVector(source.WithFeatures(a, b))

	s := newClustered(t, store, cluster.WithDistance(10))

	// 50 map units apart: separate at resolution 1, merged at resolution 10.
	assert.Len(t, load(t, s, 1), 2)
	assert.Len(t, load(t, s, 10), 1)
}

func TestClusterPartition(t *testing.T) {
	features := []*feature.Feature{
		pointFeature(0, 0), pointFeature(3, 3), pointFeature(7, -2),
		pointFeature(40, 40), pointFeature(44, 41),
		pointFeature(-90, 12),
	}
	store := source.NewVector(source.WithFeatures(features...))

	s := newClustered(t, store, cluster.WithDistance(10))
	clusters := load(t, s, 1)

	seen := make(map[uint32]int)
	for _, cl := range clusters {
		for _, m := range members(t, cl) {
			seen[m.UID()]++
		}
	}
	require.Len(t, seen, len(features), "every feature belongs to a cluster")
	for uid, n := range seen {
		assert.Equalf(t, 1, n, "feature %d in multiple clusters", uid)
	}
}

func TestClusterBoxProximity(t *testing.T) {
	t.Run("DiagonalInsideBox", func(t *testing.T) {
		// Euclidean distance is 9*sqrt(2) > 10 but the box test absorbs it.
		store := source.NewVector(source.WithFeatures(pointFeature(0, 0), pointFeature(9, 9)))
		s := newClustered(t, store, cluster.WithDistance(10))
		assert.Len(t, load(t, s, 1), 1)
	})

	t.Run("BoxEdgeTouchAbsorbs", func(t *testing.T) {
		store := source.NewVector(source.WithFeatures(pointFeature(0, 0), pointFeature(10, 0)))
		s := newClustered(t, store, cluster.WithDistance(10))
		assert.Len(t, load(t, s, 1), 1)
	})

	t.Run("OutsideBoxSeparate", func(t *testing.T) {
		store := source.NewVector(source.WithFeatures(pointFeature(0, 0), pointFeature(11, 0)))
		s := newClustered(t, store, cluster.WithDistance(10))
		assert.Len(t, load(t, s, 1), 2)
	})
}

func TestClusterGreedyOrderDependence(t *testing.T) {
	// B is within A's box, C is not. C is within B's box, but B is absorbed
	// by A first, so C anchors its own cluster.
	a := pointFeature(0, 0)
	b := pointFeature(8, 0)
	c := pointFeature(16, 0)
	store := source.NewVector(source.WithFeatures(a, b, c))

	s := newClustered(t, store, cluster.WithDistance(10))
	clusters := load(t, s, 1)

	require.Len(t, clusters, 2)
	assert.ElementsMatch(t, []*feature.Feature{a, b}, members(t, clusters[0]))
	assert.ElementsMatch(t, []*feature.Feature{c}, members(t, clusters[1]))
}

func TestClusterGroupKey(t *testing.T) {
	cafe := pointFeature(0, 0)
	cafe.Set("type", feature.String("cafe"))
	bar := pointFeature(1, 0)
	bar.Set("type", feature.String("bar"))
	cafe2 := pointFeature(2, 0)
	cafe2.Set("type", feature.String("cafe"))
	untyped := pointFeature(3, 0)

	store := source.NewVector(source.WithFeatures(cafe, bar, cafe2, untyped))
	s := newClustered(t, store, cluster.WithDistance(10), cluster.WithGroupKey("type"))
	clusters := load(t, s, 1)

	require.Len(t, clusters, 3)
	assert.ElementsMatch(t, []*feature.Feature{cafe, cafe2}, members(t, clusters[0]))
	assert.ElementsMatch(t, []*feature.Feature{bar}, members(t, clusters[1]))
	assert.ElementsMatch(t, []*feature.Feature{untyped}, members(t, clusters[2]))

	t.Run("GroupKeyAttributeSet", func(t *testing.T) {
		v, ok := clusters[0].Get(cluster.AttributeGroupKey).AsString()
		require.True(t, ok)
		assert.Equal(t, "cafe", v)

		assert.Equal(t, feature.KindAbsent, clusters[2].Get(cluster.AttributeGroupKey).Kind)
	})

	t.Run("AbsentMatchesAbsent", func(t *testing.T) {
		other := pointFeature(4, 0)
		store.AddFeature(other)

		for _, cl := range s.GetFeatures() {
			if cl.Get(cluster.AttributeGroupKey).Kind == feature.KindAbsent {
				assert.ElementsMatch(t, []*feature.Feature{untyped, other}, members(t, cl))
				return
			}
		}
		t.Fatal("no absent-key cluster found")
	})
}

func TestClusterIdentifiers(t *testing.T) {
	f1 := pointFeature(0, 0)
	f1.Set("id", feature.Number(11))
	f2 := pointFeature(1, 0)
	f2.Set("id", feature.Number(22))
	f3 := pointFeature(2, 0)
	f3.Set("id", feature.String("33")) // numeric string coerces
	f4 := pointFeature(3, 0)           // no id: NaN sentinel

	store := source.NewVector(source.WithFeatures(f1, f2, f3, f4))
	s := newClustered(t, store, cluster.WithDistance(10), cluster.WithIndexKey("id"))
	clusters := load(t, s, 1)

	require.Len(t, clusters, 1)
	ms := members(t, clusters[0])
	ids, ok := clusters[0].Get(cluster.AttributeIdentifiers).AsArray()
	require.True(t, ok)
	require.Len(t, ids, len(ms))

	// Identifiers come out in reverse member order; a member without the
	// index key (and a non-numeric value) contributes the NaN sentinel.
	for i, id := range ids {
		m := ms[len(ms)-1-i]
		want := m.Get("id").Float()
		if math.IsNaN(want) {
			assert.True(t, math.IsNaN(id.F64))
		} else {
			assert.InDelta(t, want, id.F64, 0)
		}
	}

	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		if !math.IsNaN(id.F64) {
			values = append(values, id.F64)
		}
	}
	assert.ElementsMatch(t, []float64{11, 22, 33}, values)
}

func TestClusterCentroid(t *testing.T) {
	store := source.NewVector(source.WithFeatures(
		pointFeature(0, 0), pointFeature(4, 0), pointFeature(2, 6),
	))
	s := newClustered(t, store, cluster.WithDistance(10))
	clusters := load(t, s, 1)

	require.Len(t, clusters, 1)
	assert.Equal(t, geom.NewPoint(2, 2), centroid(t, clusters[0]))
}

func TestClusterCustomExtractor(t *testing.T) {
	a := pointFeature(0, 0)
	hidden := pointFeature(1, 0)
	hidden.Set("hidden", feature.Bool(true))

	store := source.NewVector(source.WithFeatures(a, hidden))
	s := newClustered(t, store,
		cluster.WithDistance(10),
		cluster.WithGeometryExtractor(func(f *feature.Feature) (geom.Point, bool) {
			if v, _ := f.Get("hidden").AsBool(); v {
				return geom.Point{}, false
			}
			return f.Geometry().(geom.Point), true
		}),
	)
	clusters := load(t, s, 1)

	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []*feature.Feature{a}, members(t, clusters[0]))
}

type lineGeometry struct{}

func (lineGeometry) Type() string { return "LineString" }
func (lineGeometry) Extent() geom.Extent {
	return geom.NewExtent(0, 0, 1, 1)
}

func TestDefaultExtractorPanicsOnNonPoint(t *testing.T) {
	store := source.NewVector(source.WithFeatures(feature.New(lineGeometry{})))
	s := newClustered(t, store, cluster.WithDistance(10))

	assert.Panics(t, func() {
		_ = s.LoadFeatures(context.Background(), geom.InfiniteExtent(), 1)
	})
}

func TestClusterEmptyStore(t *testing.T) {
	s := newClustered(t, source.NewVector())
	assert.Empty(t, load(t, s, 1))
}
