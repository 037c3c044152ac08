package cluster

import (
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/geom"
)

// Attribute names synthesized onto every cluster feature.
const (
	// AttributeFeatures holds the member features of a cluster.
	AttributeFeatures = "features"
	// AttributeGroupKey holds the group-key value shared by all members.
	AttributeGroupKey = "groupkey"
	// AttributeIdentifiers holds the numeric index-key values of the members,
	// in reverse member order.
	AttributeIdentifiers = "identifiers"
)

// buildCluster derives the aggregate feature for a set of members sharing a
// group key: geometry is the member centroid, identifiers are the numeric
// coercions of the index-key attribute.
//
// Members are walked last to first, so the identifier list comes out in
// reverse of the discovery order. Consumers depend on that ordering quirk;
// do not normalize it.
func buildCluster(groupKey feature.Value, members []*feature.Feature, extractor GeometryExtractor, indexKey string) *feature.Feature {
	var sumX, sumY float64
	identifiers := make([]float64, 0, len(members))

	for i := len(members) - 1; i >= 0; i-- {
		p, ok := extractor(members[i])
		if !ok {
			// Membership already required a successful extraction; if it
			// fails now the member is dropped from the cluster in place.
			members = append(members[:i], members[i+1:]...)
			continue
		}
		sumX += p.X
		sumY += p.Y
		identifiers = append(identifiers, members[i].Get(indexKey).Float())
	}

	n := float64(len(members))
	centroid := geom.NewPoint(sumX/n, sumY/n)

	cf := feature.New(centroid)
	cf.Set(AttributeFeatures, feature.Features(members))
	cf.Set(AttributeGroupKey, groupKey)
	cf.Set(AttributeIdentifiers, feature.Numbers(identifiers))
	return cf
}
