package cluster

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/greentheorystudio/openlayers/feature"
)

// clusterPass runs one full greedy clustering pass over the base store.
//
// The pass is single-threaded and order-dependent by design: features are
// visited in the store's iteration order, and each unclustered feature that
// yields a point anchors a square search box of side 2*mapDistance around
// itself. Everything in the box with the same group key that has not been
// absorbed yet joins the anchor's cluster. Because a member only had to be
// near *its* anchor, chains of anchors can grow a cluster's footprint well
// beyond mapDistance; that transitive behavior is part of the contract.
//
// Proximity is the box test, not Euclidean distance: diagonal neighbors up to
// mapDistance*sqrt(2) away can be absorbed.
func (s *Source) clusterPass() []*feature.Feature {
	mapDistance := s.distance * s.resolution
	clustered := roaring.New()

	features := s.store.GetFeatures()
	clusters := make([]*feature.Feature, 0)

	for _, f := range features {
		if clustered.Contains(f.UID()) {
			continue
		}

		p, ok := s.extractor(f)
		if !ok {
			// No point: leave unclustered and excluded from all output.
			continue
		}

		keyValue := f.Get(s.groupKey)
		key := keyValue.Key()

		searchExtent := p.Extent().Buffer(mapDistance)
		candidates := s.store.GetFeaturesInExtent(searchExtent)

		// The query extent contains the anchor itself, so members is
		// non-empty unless the store is out of contract.
		members := make([]*feature.Feature, 0, len(candidates))
		for _, c := range candidates {
			if c.Get(s.groupKey).Key() != key {
				continue
			}
			if clustered.Contains(c.UID()) {
				continue
			}
			clustered.Add(c.UID())
			members = append(members, c)
		}

		if len(members) == 0 {
			continue
		}

		clusters = append(clusters, buildCluster(keyValue, members, s.extractor, s.indexKey))
	}

	return clusters
}
