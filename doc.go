// Package openlayers provides screen-space clustering of point features.
//
// The module groups into:
//
//   - geom: points and extents
//   - feature: the attribute-carrying feature model
//   - source: the vector feature store, loaders and snapshots
//   - cluster: the clustering source wrapping a base store
//   - format/geojson: GeoJSON decoding and encoding
//   - blobstore: pluggable blob storage for datasets (local, memory, S3, MinIO)
//
// The usual wiring is a source.Vector holding raw point features and a
// cluster.Source deriving aggregate features from it per viewing resolution:
//
//	store := source.NewVector(source.WithLoader(source.NewFileLoader("points.geojson")))
//	clustered, err := cluster.New(store, cluster.WithDistance(40))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer clustered.Close()
//
//	if err := clustered.LoadFeatures(ctx, geom.InfiniteExtent(), resolution); err != nil {
//		log.Fatal(err)
//	}
//	for _, c := range clustered.GetFeatures() {
//		members, _ := c.Get(cluster.AttributeFeatures).AsFeatures()
//		fmt.Println(c.Geometry(), len(members))
//	}
package openlayers
